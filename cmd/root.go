package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/vitals-cli/internal/config"
	"github.com/KaramelBytes/vitals-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Parse flags (override config if set)
	flagLayout   string
	flagTimezone string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "vitals",
	Short: "vitals: load web-vitals exports and report LCP/CLS statistics",
	Long: `vitals ingests LCP/CLS exports (CSV or spreadsheet), normalizes their mixed
date formats, keeps the current dataset on disk and reports percentile,
range and last-7-days statistics for any date range and brand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vitals/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log skipped rows and other diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLayout, "layout", "", "CSV column layout: adjacent | wide (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagTimezone, "timezone", "", "IANA zone for parsed dates, or Local (overrides config)")
}

func loadConfig() {
	cfg = nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: config show/set can still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("layout") && flagLayout != "" {
		if err := cfg.Set("csv_layout", flagLayout); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: ignoring --layout: %v\n", err)
		}
	}
	if f.Changed("timezone") && flagTimezone != "" {
		if err := cfg.Set("timezone", flagTimezone); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: ignoring --timezone: %v\n", err)
		}
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger = logging.New(level, os.Stderr)
	slog.SetDefault(logger)
}

func requireConfig() error {
	if cfg == nil {
		return fmt.Errorf("no usable configuration; run 'vitals config show' to inspect it")
	}
	return nil
}
