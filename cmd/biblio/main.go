// Package main provides the biblio CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbosity   int
	quiet       bool
	schemaPath  string
	workers     int
)

// cfg is the effective configuration, loaded before any command runs.
var cfg = &config.Config{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "biblio",
	Short: "Repair, validate, merge and export bibliographic records",
	Long: `biblio maintains collections of bibliographic records.

Records are read from CSV/TSV (Paperpile exports by default), JSON, JSONL or
YAML, optionally gzip or zstd compressed. Commands:
  - repair: fill in missing identifiers, URLs and journals
  - validate: report missing fields, duplicates and misfiled preprints
  - merge: copy fields between collections that share identifiers
  - export: write records in another format, BibTeX or Markdown

Results and diagnostics are JSON by default; use --human for text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	// Load .env file if present (for NCBI_API_KEY)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "YAML file extending the built-in schema")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Parallel lookups during repair (default from config, else 4)")
	rootCmd.Version = Version
}

// setup configures logging and loads configuration.
func setup(cmd *cobra.Command, args []string) error {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logLevel(verbosity, quiet))

	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	loaded, err := config.Load(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	cfg = loaded
	return nil
}

// logLevel maps -v/-q flags to a logrus level. Warnings are shown by
// default.
func logLevel(verbosity int, quiet bool) logrus.Level {
	switch {
	case quiet:
		return logrus.ErrorLevel
	case verbosity >= 2:
		return logrus.DebugLevel
	case verbosity == 1:
		return logrus.InfoLevel
	}
	return logrus.WarnLevel
}
