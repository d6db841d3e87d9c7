package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

func newLexiconCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "List the recognised symptoms",
		RunE: func(cmd *cobra.Command, args []string) error {
			lex, err := lexicon.Default()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tWEIGHT\tEMERGENCY")
			for _, s := range lex.Symptoms() {
				if category != "" && !strings.EqualFold(s.Category, category) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%t\n", s.ID, s.Display(), s.Category, s.Weight, s.Emergency)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list symptoms in this category")
	return cmd
}

func newCorpusCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Train the classifier and report corpus sufficiency",
		Long: `Corpus trains the classifier exactly as the server does at startup
(catalog database first, built-in corpus as fallback) and reports whether the
corpus is large enough for reliable predictions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			suff := svc.Model.Sufficiency()
			labels := append([]string(nil), svc.Model.Labels()...)
			sort.Strings(labels)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"sufficiency": suff,
					"vocabulary":  svc.Model.VocabularySize(),
					"labels":      labels,
				})
			}

			fmt.Fprintf(out, "Samples:    %d\n", suff.Samples)
			fmt.Fprintf(out, "Conditions: %d\n", suff.Labels)
			fmt.Fprintf(out, "Vocabulary: %d terms\n", svc.Model.VocabularySize())
			fmt.Fprintf(out, "Sufficient: %t\n", suff.Sufficient)
			fmt.Fprintln(out)
			for _, l := range labels {
				fmt.Fprintf(out, "  %s\n", l)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().String("database-url", "", "catalog database URL (overrides config)")
	return cmd
}

func newConditionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "condition <id>",
		Short: "Show a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			cond, err := svc.Catalog.Condition(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cond)
		},
	}

	cmd.Flags().String("database-url", "", "catalog database URL (overrides config)")
	return cmd
}
