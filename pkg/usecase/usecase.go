package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/service/classifier"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/secmon-lab/argus/pkg/service/slack"
	"github.com/secmon-lab/argus/pkg/utils/async"
)

const (
	DefaultBatchSize   = 5
	DefaultCallTimeout = 10 * time.Second
)

// TokenService mints the system credential and verifies bearer credentials back into principals
type TokenService interface {
	SystemToken(ctx context.Context) (string, error)
	Verify(ctx context.Context, raw string) (*auth.Principal, error)
}

// PipelineConfig tunes a pipeline tick
type PipelineConfig struct {
	BatchSize   int
	CallTimeout time.Duration
}

type UseCases struct {
	repo         interfaces.Repository
	classifier   classifier.Service
	slackService slack.Service
	slackChannel string
	tokens       TokenService
	recorder     metrics.Recorder
	pipelineCfg  PipelineConfig
	dispatcher   *async.Dispatcher
	clock        func() time.Time

	Ingest       *IngestUseCase
	Insight      *InsightUseCase
	Competitor   *CompetitorUseCase
	Subscription *SubscriptionUseCase
	Notification *NotificationUseCase
	Augment      *AugmentUseCase
	Pipeline     *PipelineUseCase
}

type Option func(*UseCases)

func WithClassifier(svc classifier.Service) Option {
	return func(uc *UseCases) {
		uc.classifier = svc
	}
}

// WithSlack enables best-effort Block Kit delivery of notifications to channelID
func WithSlack(svc slack.Service, channelID string) Option {
	return func(uc *UseCases) {
		uc.slackService = svc
		uc.slackChannel = channelID
	}
}

func WithTokenService(svc TokenService) Option {
	return func(uc *UseCases) {
		uc.tokens = svc
	}
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(uc *UseCases) {
		uc.recorder = rec
	}
}

func WithPipelineConfig(cfg PipelineConfig) Option {
	return func(uc *UseCases) {
		uc.pipelineCfg = cfg
	}
}

// WithClock overrides the time source used for dates stamped by the pipeline
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		recorder:   metrics.Nop{},
		dispatcher: &async.Dispatcher{},
		clock:      time.Now,
		pipelineCfg: PipelineConfig{
			BatchSize:   DefaultBatchSize,
			CallTimeout: DefaultCallTimeout,
		},
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.classifier == nil {
		uc.classifier = classifier.NewDisabled()
	}
	if uc.pipelineCfg.BatchSize <= 0 {
		uc.pipelineCfg.BatchSize = DefaultBatchSize
	}
	if uc.pipelineCfg.CallTimeout <= 0 {
		uc.pipelineCfg.CallTimeout = DefaultCallTimeout
	}

	uc.Ingest = NewIngestUseCase(repo)
	uc.Insight = NewInsightUseCase(repo, uc.clock)
	uc.Competitor = NewCompetitorUseCase(repo)
	uc.Subscription = NewSubscriptionUseCase(repo)
	uc.Notification = NewNotificationUseCase(repo, uc.slackService, uc.slackChannel, uc.pipelineCfg.CallTimeout, uc.dispatcher)
	uc.Augment = NewAugmentUseCase(repo, uc.recorder, uc.clock)
	uc.Pipeline = NewPipelineUseCase(repo, uc.classifier, uc.Insight, uc.Augment, uc.Notification, uc.tokens, uc.recorder, uc.pipelineCfg, uc.clock)

	return uc
}

// Wait blocks until background deliveries have finished
func (uc *UseCases) Wait() {
	uc.dispatcher.Wait()
}
