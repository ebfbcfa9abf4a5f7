package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/sabrinalaillita/fpg-strl/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "fpg",
	Short: "fpg: market basket analysis for point-of-sale exports",
	Long: `fpg loads a sales export (CSV/TSV/XLSX, one row per purchased item), cleans it
into transactions, mines frequent itemsets with FP-Growth and derives association
rules ranked by lift.`,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.fpg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	slog.SetDefault(newLogger(debug))
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c
	slog.Debug("config loaded", "runs_dir", cfg.RunsDir, "min_support", cfg.MinSupport)
}

// activeConfig returns the loaded config, or defaults when loading failed.
func activeConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Default()
}

// newLogger logs to stderr so stdout stays clean for reports.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
