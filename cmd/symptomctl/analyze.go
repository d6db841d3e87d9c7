package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/render"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		audience string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [description]",
		Short: "Analyze a free-text symptom description",
		Long: `Analyze runs the full pipeline on a description given as arguments, or on
standard input when no arguments are given, and prints the rendered
response. Emergencies are always reported first.`,
		Example: `  symptomctl analyze "I have a runny nose and I keep sneezing"
  echo "crushing chest pain" | symptomctl analyze --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			aud, ok := render.ParseAudience(audience)
			if !ok {
				return fmt.Errorf("unknown audience %q (want patient or clinician)", audience)
			}

			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			resp := svc.Analyzer.Process(cmd.Context(), analyzer.Request{Text: text, Audience: aud})
			return printResponse(cmd.OutOrStdout(), resp, asJSON)
		},
	}

	cmd.Flags().StringVar(&audience, "audience", string(render.AudiencePatient), "patient or clinician")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().Bool("enhancer", true, "consult the external enhancer on low-confidence results")
	cmd.Flags().String("database-url", "", "catalog database URL (overrides config)")
	return cmd
}

func printResponse(w io.Writer, resp analyzer.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "[%s] %s\n\n", resp.Kind, resp.ID)
	fmt.Fprintln(w, resp.ResponseText)
	if len(resp.FollowUps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Follow-up questions:")
		for _, q := range resp.FollowUps {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	return nil
}
