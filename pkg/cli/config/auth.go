package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/service/token"
	"github.com/urfave/cli/v3"
)

const minSecretLength = 32

// Auth holds CLI flags for bearer credential signing
type Auth struct {
	secret string
	ttl    time.Duration
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "Shared secret for signing bearer tokens (at least 32 bytes)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("ARGUS_JWT_SECRET"),
			Destination: &x.secret,
		},
		&cli.DurationFlag{
			Name:        "token-ttl",
			Usage:       "Lifetime of minted tokens",
			Category:    "Authentication",
			Value:       token.DefaultTTL,
			Sources:     cli.EnvVars("ARGUS_TOKEN_TTL"),
			Destination: &x.ttl,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("secret.len", len(x.secret)),
		slog.String("ttl", x.ttl.String()),
	)
}

// IsConfigured returns true when a signing secret is set
func (x *Auth) IsConfigured() bool {
	return x.secret != ""
}

// Configure creates the token service. Returns nil when no secret is set.
func (x *Auth) Configure() (*token.Service, error) {
	if x.secret == "" {
		return nil, nil
	}
	if len(x.secret) < minSecretLength {
		return nil, goerr.New("jwt-secret is too short", goerr.V("length", len(x.secret)), goerr.V("min", minSecretLength))
	}

	svc, err := token.New([]byte(x.secret), token.WithTTL(x.ttl))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize token service")
	}
	return svc, nil
}
