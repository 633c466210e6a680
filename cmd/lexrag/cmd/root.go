// Package cmd provides the CLI commands for lexrag.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/logging"
	"github.com/lexrag/lexrag/pkg/version"
)

var (
	configPath     string
	logLevel       string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the lexrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexrag",
		Short: "Hybrid retrieval engine for regulatory text",
		Long: `lexrag indexes a text corpus (chunked on section headings) and
answers queries with hybrid retrieval: BM25 keyword search and dense
vector search fused via Reciprocal Rank Fusion, with an optional
cross-encoder rerank stage.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("lexrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lexrag.yaml", "Config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSectionCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging initializes structured logging before any command runs.
// The log level resolves flag > config file > default.
func setupLogging(_ *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		if cfg, err := config.Load(configPath); err == nil {
			level = cfg.LogLevel
		}
	}

	_, cleanup, err := logging.Setup(logging.Config{Level: level})
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the CLI with signal-aware context cancellation.
func Execute() error {
	// Optional .env for provider credentials; a missing file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
