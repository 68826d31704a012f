// Package cli implements the protext command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/localrivet/protext/internal/config"
	"github.com/localrivet/protext/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	log      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "protext",
	Short: "Summarize long text and documents with a language model",
	Long: `protext splits long text into sentence-aligned chunks, summarizes every
chunk with the configured model provider and joins the results.

Example usage:
  protext summarize report.pdf             # Summarize a document
  protext summarize --text "..." -f json   # Summarize text, print JSON
  protext serve                            # Run as an MCP server on stdio
  protext http --addr :8080                # Run the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.LoadConfigWithPath(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logCfg := logger.DefaultConfig()
		logCfg.Level = logger.ParseLevel(cfg.Logging.Level)
		logCfg.Format = logger.ParseFormat(cfg.Logging.Format)
		log = logger.SetupDefault(logCfg)

		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFilename, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// GetConfig returns the configuration loaded by the root command.
func GetConfig() *config.Config {
	return cfg
}
