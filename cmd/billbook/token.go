package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DodailSolutions/billbook/internal/middleware"
)

// newTokenCmd mints a bearer token signed with JWT_SECRET. Intended for local
// development and operator scripts.
func newTokenCmd() *cobra.Command {
	var (
		userID     string
		email      string
		superAdmin bool
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap("token")
			if err != nil {
				return err
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			token, err := middleware.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, id, email, superAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().BoolVar(&superAdmin, "super-admin", false, "grant super admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
