package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/themobileprof/symptomcheck/internal/api/middleware"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if c.cfg.File != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", c.cfg.File)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults and environment)\n\n")
			}

			data, err := yaml.Marshal(c.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	})
	return cmd
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		Long: `Token signs an access token with the configured JWT secret. A token with
role clinician unlocks the clinician audience on /api/analyze and /ws/chat;
role operator unlocks /api/admin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case middleware.RolePatient, middleware.RoleClinician, middleware.RoleOperator:
			default:
				return fmt.Errorf("unknown role %q (want patient, clinician or operator)", role)
			}
			tok, err := middleware.IssueToken(c.cfg.JWT.Secret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().StringVar(&role, "role", middleware.RoleClinician, "patient, clinician or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
