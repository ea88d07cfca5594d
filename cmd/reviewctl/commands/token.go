package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/auth"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

const operatorUserID = "reviewctl"

func newTokenCmd(opts *options) *cobra.Command {
	var (
		userID string
		roles  []string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token with JWT_SECRET",
		Long: `Sign an access token for local testing and operator use.

Examples:
  reviewctl token --user 42                 # Regular user token
  reviewctl token --user ops --role admin   # Admin token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := signToken(opts, userID, expiry, roles...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", operatorUserID, "User ID to embed")
	cmd.Flags().StringSliceVar(&roles, "role", []string{domain.RoleUser}, "Roles to embed")
	cmd.Flags().DurationVar(&expiry, "expiry", time.Hour, "Token lifetime")
	return cmd
}

func signToken(opts *options, userID string, expiry time.Duration, roles ...string) (string, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return "", err
	}
	token, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry).GenerateAccessToken(userID, roles...)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// bearer returns the --token value or signs a short-lived admin token.
func bearer(opts *options) (string, error) {
	if opts.token != "" {
		return opts.token, nil
	}
	return signToken(opts, operatorUserID, opts.timeout+time.Minute, domain.RoleAdmin)
}
