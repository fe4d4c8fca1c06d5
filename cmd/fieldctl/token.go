package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/auth"
	"github.com/faciam-dev/crmfields/pkg/util"
)

// newTokenCmd issues a token signed with JWT_SECRET. It is meant for
// development and for service accounts; the API does not issue tokens
// from credentials.
func newTokenCmd() *cobra.Command {
	var subject, role, secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("JWT_SECRET or --secret is required")
			}
			tok, err := auth.NewJWT(secret, ttl).Generate(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", util.GetEnv("USER", "fieldctl"), "token subject")
	cmd.Flags().StringVar(&role, "role", "admin", "role claim (admin|user)")
	cmd.Flags().StringVar(&secret, "secret", util.GetEnv("JWT_SECRET", ""), "HMAC secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
