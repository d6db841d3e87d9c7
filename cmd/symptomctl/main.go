// Package main is the symptomctl operator CLI: run analyses, inspect the
// lexicon and catalog, check the training corpus and print configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/themobileprof/symptomcheck/internal/app"
	"github.com/themobileprof/symptomcheck/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// cli carries state shared by every subcommand.
type cli struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "symptomctl",
		Short: "Operate the symptom intake analyzer",
		Long: `symptomctl runs the symptom analysis pipeline from the command line and
inspects the data it is built from: the symptom lexicon, the condition
catalog and the classifier training corpus.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (SYMPTOM_*, GEMINI_API_KEY, DEEPSEEK_API_KEY, OPENAI_API_KEY)
3. Config file (./symptom.yaml or ~/.config/symptom/symptom.yaml)
4. Defaults

symptomctl is not a medical device. Its output is informational only.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !c.verbose {
				log.SetOutput(io.Discard)
			}
			v, err := config.Open(c.cfgFile)
			if err != nil {
				return err
			}
			if f := cmd.Flags().Lookup("enhancer"); f != nil {
				_ = v.BindPFlag("enhancer.enabled", f)
			}
			if f := cmd.Flags().Lookup("database-url"); f != nil {
				_ = v.BindPFlag("database.url", f)
			}
			c.cfg, err = config.FromViper(v)
			if err != nil {
				return err
			}
			if c.verbose && c.cfg.File != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", c.cfg.File)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./symptom.yaml or ~/.config/symptom/symptom.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "show service logs")

	rootCmd.AddCommand(
		newAnalyzeCmd(c),
		newLexiconCmd(),
		newCorpusCmd(c),
		newConditionCmd(c),
		newConfigCmd(c),
		newTokenCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

// service builds the analyzer graph from the loaded configuration.
func (c *cli) service(ctx context.Context) (*app.App, error) {
	svc, err := app.New(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("start analyzer: %w", err)
	}
	return svc, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "symptomctl %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
