package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/service/classifier"
	"github.com/secmon-lab/argus/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// DefaultPipelineInterval is the wait between pipeline ticks
const DefaultPipelineInterval = 10 * time.Second

// Pipeline holds CLI flags tuning the document pipeline
type Pipeline struct {
	interval      time.Duration
	batchSize     int
	callTimeout   time.Duration
	oracleTimeout time.Duration
	backoffMax    time.Duration
	maxChars      int
}

func (x *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "pipeline-interval",
			Usage:       "Wait between pipeline ticks",
			Category:    "Pipeline",
			Value:       DefaultPipelineInterval,
			Sources:     cli.EnvVars("ARGUS_PIPELINE_INTERVAL"),
			Destination: &x.interval,
		},
		&cli.IntFlag{
			Name:        "pipeline-batch-size",
			Usage:       "Maximum documents processed per tick",
			Category:    "Pipeline",
			Value:       usecase.DefaultBatchSize,
			Sources:     cli.EnvVars("ARGUS_PIPELINE_BATCH_SIZE"),
			Destination: &x.batchSize,
		},
		&cli.DurationFlag{
			Name:        "pipeline-call-timeout",
			Usage:       "Timeout for each collaborator call made by the pipeline",
			Category:    "Pipeline",
			Value:       usecase.DefaultCallTimeout,
			Sources:     cli.EnvVars("ARGUS_PIPELINE_CALL_TIMEOUT"),
			Destination: &x.callTimeout,
		},
		&cli.DurationFlag{
			Name:        "pipeline-oracle-timeout",
			Usage:       "Timeout for one classification call",
			Category:    "Pipeline",
			Value:       classifier.DefaultTimeout,
			Sources:     cli.EnvVars("ARGUS_PIPELINE_ORACLE_TIMEOUT"),
			Destination: &x.oracleTimeout,
		},
		&cli.DurationFlag{
			Name:        "pipeline-backoff-max",
			Usage:       "Upper bound of idle backoff. Zero keeps a fixed interval",
			Category:    "Pipeline",
			Sources:     cli.EnvVars("ARGUS_PIPELINE_BACKOFF_MAX"),
			Destination: &x.backoffMax,
		},
		&cli.IntFlag{
			Name:        "classifier-max-chars",
			Usage:       "Maximum characters of document text sent for classification",
			Category:    "Pipeline",
			Value:       classifier.DefaultMaxChars,
			Sources:     cli.EnvVars("ARGUS_CLASSIFIER_MAX_CHARS"),
			Destination: &x.maxChars,
		},
	}
}

func (x Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("interval", x.interval.String()),
		slog.Int("batch_size", x.batchSize),
		slog.String("call_timeout", x.callTimeout.String()),
		slog.String("oracle_timeout", x.oracleTimeout.String()),
		slog.String("backoff_max", x.backoffMax.String()),
		slog.Int("max_chars", x.maxChars),
	)
}

// Merge applies values from the config file for flags left at their defaults
func (x *Pipeline) Merge(file PipelineFile) {
	if file.Interval > 0 && x.interval == DefaultPipelineInterval {
		x.interval = file.Interval
	}
	if file.BatchSize > 0 && x.batchSize == usecase.DefaultBatchSize {
		x.batchSize = file.BatchSize
	}
	if file.BackoffMax > 0 && x.backoffMax == 0 {
		x.backoffMax = file.BackoffMax
	}
}

// Validate checks the tuning values
func (x *Pipeline) Validate() error {
	if x.interval <= 0 {
		return goerr.New("pipeline interval must be positive", goerr.V("interval", x.interval))
	}
	if x.batchSize <= 0 {
		return goerr.New("pipeline batch size must be positive", goerr.V("batch_size", x.batchSize))
	}
	if x.backoffMax < 0 {
		return goerr.New("pipeline backoff max must not be negative", goerr.V("backoff_max", x.backoffMax))
	}
	return nil
}

// Interval returns the wait between ticks
func (x *Pipeline) Interval() time.Duration {
	return x.interval
}

// BackoffMax returns the idle backoff upper bound
func (x *Pipeline) BackoffMax() time.Duration {
	return x.backoffMax
}

// UseCaseConfig returns the per-tick tuning
func (x *Pipeline) UseCaseConfig() usecase.PipelineConfig {
	return usecase.PipelineConfig{
		BatchSize:   x.batchSize,
		CallTimeout: x.callTimeout,
	}
}

// ClassifierOptions returns options for the classifier built from these flags
func (x *Pipeline) ClassifierOptions() []classifier.Option {
	var opts []classifier.Option
	if x.oracleTimeout > 0 {
		opts = append(opts, classifier.WithTimeout(x.oracleTimeout))
	}
	if x.maxChars > 0 {
		opts = append(opts, classifier.WithMaxChars(x.maxChars))
	}
	return opts
}
