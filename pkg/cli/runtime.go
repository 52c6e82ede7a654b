package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/cli/config"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/service/classifier"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/secmon-lab/argus/pkg/service/token"
	"github.com/secmon-lab/argus/pkg/usecase"
	"github.com/secmon-lab/argus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// pipelineConfig groups the flags shared by commands that run the pipeline
type pipelineConfig struct {
	app      config.App
	repo     config.Repository
	llm      config.LLM
	slack    config.Slack
	pipeline config.Pipeline
	auth     config.Auth
	archive  config.Archive
}

func (x *pipelineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.app.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.llm.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	flags = append(flags, x.pipeline.Flags()...)
	flags = append(flags, x.auth.Flags()...)
	flags = append(flags, x.archive.Flags()...)
	return flags
}

// runtime holds everything built from pipelineConfig. close releases it in reverse order.
type runtime struct {
	repo    interfaces.Repository
	uc      *usecase.UseCases
	tokens  *token.Service
	closers []func() error
}

func (r *runtime) close() {
	if r.uc != nil {
		r.uc.Wait()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logging.Default().Error("failed to close resource", "error", err.Error())
		}
	}
}

func (x *pipelineConfig) build(ctx context.Context, recorder metrics.Recorder) (*runtime, error) {
	appCfg, err := x.app.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration file")
	}
	x.pipeline.Merge(appCfg.Pipeline)
	if err := x.pipeline.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid pipeline configuration")
	}

	rt := &runtime{}
	success := false
	defer func() {
		if !success {
			rt.close()
		}
	}()

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	rt.repo = repo
	rt.closers = append(rt.closers, repo.Close)

	llmClient, err := x.llm.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize LLM client")
	}

	clsOpts := append(x.pipeline.ClassifierOptions(), classifier.WithFallbackHook(recorder.RecordClassifierFallback))
	store, err := x.archive.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		rt.closers = append(rt.closers, store.Close)
		clsOpts = append(clsOpts, classifier.WithArchiver(store))
	}

	var cls classifier.Service
	if llmClient != nil {
		cls, err = classifier.New(llmClient, clsOpts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize classifier")
		}
		logging.Default().LogAttrs(ctx, slog.LevelInfo, "Classifier enabled", x.llm.LogAttrs()...)
	} else {
		cls = classifier.NewDisabled(clsOpts...)
		logging.Default().Warn("LLM provider not configured, documents get the default classification")
	}

	ucOpts := []usecase.Option{
		usecase.WithClassifier(cls),
		usecase.WithMetrics(recorder),
		usecase.WithPipelineConfig(x.pipeline.UseCaseConfig()),
	}

	slackSvc, err := x.slack.Configure()
	if err != nil {
		return nil, err
	}
	if slackSvc != nil {
		ucOpts = append(ucOpts, usecase.WithSlack(slackSvc, x.slack.ChannelID()))
		logging.Default().Info("Slack notification enabled", "channel", x.slack.ChannelID())
	}

	tokens, err := x.auth.Configure()
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		rt.tokens = tokens
		ucOpts = append(ucOpts, usecase.WithTokenService(tokens))
	}

	rt.uc = usecase.New(repo, ucOpts...)

	if seeds := appCfg.ToCompetitors(); len(seeds) > 0 {
		n, err := rt.uc.Competitor.Seed(ctx, auth.System(), seeds)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to seed competitors")
		}
		logging.Default().Info("Competitor registry seeded", "created", n, "configured", len(seeds))
	}

	success = true
	return rt, nil
}
