package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"quizhub-attempt-service/internal/config"
	transport "quizhub-attempt-service/internal/transport/http"
)

// NewTokenCmd prints a signed access token for local clients.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runToken(cmd.OutOrStdout(), cfg, userID, role, ttl)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id carried in the token")
	cmd.Flags().StringVar(&role, "role", "", "role carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}

func runToken(out io.Writer, cfg config.Config, userID, role string, ttl time.Duration) error {
	if err := cfg.RequireAuth(); err != nil {
		return err
	}
	if userID == "" {
		return errors.New("--user is required")
	}
	tok, err := transport.NewAuthenticator(cfg.Auth.JWTSecret).IssueToken(userID, role, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
