package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-reports/internal/config"
	"github.com/dvloznov/finance-reports/internal/logger"
)

var (
	// Global flags
	configPath string
	timeout    time.Duration

	// Overrides applied on top of the loaded configuration
	inputPath string
	outputDir string
	policy    string
	threshold string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
)

// rootCmd runs the reporting pipeline once.
var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Build transaction reports from a CSV export",
	Long: `report loads a transaction CSV, keeps the rows above the amount threshold,
renders the chart set and the processed data export into the output directory
and records the run in the run ledger.

Optional sinks are enabled through configuration: a GCS bucket mirror for
artifacts, a BigQuery table for exported rows and Redis presence registration.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: runReport,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	RunE:  runHistory,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and artifacts over HTTP",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the BigQuery export table if it does not exist",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall timeout")

	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input CSV (overrides config)")
	rootCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (overrides config)")
	rootCmd.Flags().StringVar(&policy, "policy", "", "View failure policy: continue or stop")
	rootCmd.Flags().StringVar(&threshold, "threshold", "", "Amount a row must exceed to be kept")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only list runs with this status")

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and opens the log file for every command.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(loaded); err != nil {
		return err
	}
	cfg = loaded

	log, logCloser, err = logger.NewWithFile(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// applyOverrides copies non-empty command-line values onto c and revalidates.
func applyOverrides(c *config.Config) error {
	if inputPath != "" {
		c.InputPath = inputPath
	}
	if outputDir != "" {
		c.OutputDir = outputDir
	}
	if policy != "" {
		c.FailurePolicy = policy
	}
	if threshold != "" {
		c.AmountThreshold = threshold
	}
	return c.Validate()
}
