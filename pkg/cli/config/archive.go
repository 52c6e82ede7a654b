package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/service/archive"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for storing raw classifier responses
type Archive struct {
	bucket          string
	prefix          string
	credentialsFile string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for raw classifier responses. Archiving is disabled when empty",
			Category:    "Archive",
			Sources:     cli.EnvVars("ARGUS_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix inside the archive bucket",
			Category:    "Archive",
			Sources:     cli.EnvVars("ARGUS_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
		&cli.StringFlag{
			Name:        "archive-credentials",
			Usage:       "Service account key file for the archive bucket. Application default credentials are used when empty",
			Category:    "Archive",
			Sources:     cli.EnvVars("ARGUS_ARCHIVE_CREDENTIALS"),
			Destination: &x.credentialsFile,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure connects to the archive bucket. Returns nil when no bucket is set.
func (x *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if x.bucket == "" {
		return nil, nil
	}

	var opts []archive.Option
	if x.prefix != "" {
		opts = append(opts, archive.WithPrefix(x.prefix))
	}
	if x.credentialsFile != "" {
		opts = append(opts, archive.WithCredentialsFile(x.credentialsFile))
	}

	store, err := archive.NewGCS(ctx, x.bucket, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize archive")
	}
	return store, nil
}
