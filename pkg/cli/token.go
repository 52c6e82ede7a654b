package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/cli/config"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdToken() *cli.Command {
	var authCfg config.Auth
	var userID string
	var role string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "User the token is issued to",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "role",
			Usage:       "Role carried by the token [ADMIN|ANALYST|EXECUTIVE]",
			Value:       string(types.RoleAnalyst),
			Destination: &role,
		},
	}
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for API access",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			r, err := types.ParseRole(strings.ToUpper(role))
			if err != nil {
				return goerr.Wrap(err, "invalid role", goerr.V("role", role))
			}

			svc, err := authCfg.Configure()
			if err != nil {
				return err
			}
			if svc == nil {
				return goerr.New("jwt-secret is required to issue tokens")
			}

			p := &auth.Principal{
				Subject: userID,
				UserID:  model.UserID(userID),
				Role:    r,
			}
			signed, exp, err := svc.Mint(p)
			if err != nil {
				return err
			}

			logging.Default().Info("Token issued", "user_id", userID, "role", r, "expires_at", exp)
			fmt.Println(signed)
			return nil
		},
	}
}
