package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/session"
)

type tokenOutput struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	AgencyID string `json:"agencyId"`
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Session token tools",
	}

	var (
		userID   string
		role     string
		agencyID string
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a session token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller := domain.Caller{UserID: userID, Role: domain.Role(role), AgencyID: agencyID}
			if !caller.Role.Valid() {
				return fmt.Errorf("invalid --role %q", role)
			}
			if caller.Role.AgencyBound() && strings.TrimSpace(agencyID) == "" {
				return fmt.Errorf("--agency is required for role %s", role)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}

			token, err := session.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(caller)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			return writeJSON(cmd.OutOrStdout(), tokenOutput{
				Token:    token,
				UserID:   userID,
				Role:     role,
				AgencyID: agencyID,
			})
		},
	}

	issue.Flags().StringVar(&userID, "user", "", "User UUID (required)")
	issue.Flags().StringVar(&role, "role", "", "SUPERADMIN, ADMIN, TRAFFIC or CREATIVE (required)")
	issue.Flags().StringVar(&agencyID, "agency", "", "Agency UUID (required unless SUPERADMIN)")
	_ = issue.MarkFlagRequired("user")
	_ = issue.MarkFlagRequired("role")

	cmd.AddCommand(issue)
	return cmd
}
