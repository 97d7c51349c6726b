package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "dilla",
	Short: "dilla fills a database with realistic fake rows",
	Long: `dilla reads a catalog of models, generates plausible values for every
field from its kind and policy, persists the rows and then links
many-to-many relations between them.

Start with "dilla init", then "dilla discover" to build a catalog from an
existing database, and "dilla populate" to write fixtures.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.dilla/dilla.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// setupLogger opens the run log. An explicit --log-level wins over the config
// file, and debug mode always logs at debug.
func setupLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := cfg.Logging.Level
	if rootCmd.PersistentFlags().Changed("log-level") {
		level = logLevel
	}
	if cfg.Debug {
		level = "debug"
	}
	return logging.Setup(level, cfg.Logging.Directory, os.Stderr)
}
