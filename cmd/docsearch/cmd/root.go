// Package cmd provides the CLI commands for DocSearch.
package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	"github.com/WhiteShieldPT/docsearch-pt/internal/logging"
	"github.com/WhiteShieldPT/docsearch-pt/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Local search over scanned invoices and documents",
		Long: `DocSearch indexes a folder of invoices, receipts and other
administrative documents, extracts entities like tax ids, dates and
totals, and answers faceted and fuzzy queries over them.

Everything runs locally; the index lives in the data directory.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: "+config.DefaultPath()+")")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the config path and loads the configuration.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// setupLogging builds the logger from config and the --debug flag and
// stashes the cleanup for PersistentPostRun.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	lc := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      filepath.Join(cfg.Paths.DataDir, "logs", "docsearch.log"),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}
	if debugMode {
		lc.Level = "debug"
		lc.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return logger, nil
}
