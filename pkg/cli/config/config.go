package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the optional application configuration file
type AppConfig struct {
	Pipeline    PipelineFile      `toml:"pipeline"`
	Competitors []CompetitorEntry `toml:"competitor"`
}

// PipelineFile holds pipeline tuning from the configuration file
type PipelineFile struct {
	IntervalStr   string `toml:"interval"`
	BatchSize     int    `toml:"batch_size"`
	BackoffMaxStr string `toml:"backoff_max"`

	Interval   time.Duration `toml:"-"`
	BackoffMax time.Duration `toml:"-"`
}

// Validate checks and parses the pipeline section
func (p *PipelineFile) Validate() error {
	if p.IntervalStr != "" {
		d, err := time.ParseDuration(p.IntervalStr)
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid pipeline interval", goerr.V("interval", p.IntervalStr))
		}
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "pipeline interval must be positive", goerr.V("interval", p.IntervalStr))
		}
		p.Interval = d
	}
	if p.BackoffMaxStr != "" {
		d, err := time.ParseDuration(p.BackoffMaxStr)
		if err != nil || d < 0 {
			return goerr.Wrap(ErrInvalidConfig, "invalid pipeline backoff_max", goerr.V("backoff_max", p.BackoffMaxStr))
		}
		p.BackoffMax = d
	}
	if p.BatchSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "pipeline batch_size must not be negative", goerr.V("batch_size", p.BatchSize))
	}
	return nil
}

// CompetitorEntry is a registry seed entry
type CompetitorEntry struct {
	Name             string   `toml:"name"`
	Headquarters     string   `toml:"headquarters"`
	TherapeuticAreas []string `toml:"therapeutic_areas"`
	ActiveDrugs      []string `toml:"active_drugs"`
	PipelineDrugs    []string `toml:"pipeline_drugs"`
}

// Validate checks if the CompetitorEntry is valid
func (c *CompetitorEntry) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return goerr.Wrap(ErrMissingName, "competitor name is required")
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Pipeline.Validate(); err != nil {
		return goerr.Wrap(err, "invalid pipeline section")
	}

	names := make(map[string]bool)
	for i, c := range a.Competitors {
		if err := c.Validate(); err != nil {
			return goerr.Wrap(err, "invalid competitor", goerr.V(CompetitorIndexKey, i))
		}
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if names[key] {
			return goerr.Wrap(ErrDuplicateCompetitor, "duplicate competitor name", goerr.V(CompetitorNameKey, c.Name))
		}
		names[key] = true
	}

	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToCompetitors converts the seed entries to registry records
func (a *AppConfig) ToCompetitors() []*model.Competitor {
	competitors := make([]*model.Competitor, len(a.Competitors))
	for i, c := range a.Competitors {
		competitors[i] = &model.Competitor{
			Name:             strings.TrimSpace(c.Name),
			Headquarters:     c.Headquarters,
			TherapeuticAreas: c.TherapeuticAreas,
			ActiveDrugs:      c.ActiveDrugs,
			PipelineDrugs:    c.PipelineDrugs,
		}
	}
	return competitors
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("ARGUS_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the configuration file. An empty configuration is returned when no path is set.
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
