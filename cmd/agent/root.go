package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/support-agent/internal/bootstrap"
	"github.com/kirillkom/support-agent/internal/config"
	"github.com/kirillkom/support-agent/internal/observability/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "support-agent",
	Short: "Customer support agent grounded in an FAQ knowledge base",
	Long: `support-agent answers customer questions from an FAQ knowledge base.
Every answer passes an input safety check, intent classification, evidence
retrieval, LLM generation, validation with at most one repair, and output
filtering. Configuration comes from the environment (see README).`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig returns the environment config and a stderr logger; stdout is
// reserved for conversation output and the MCP protocol.
func loadConfig() (config.Config, *slog.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, logging.NewTextLogger(os.Stderr, "agent", cfg.LogLevel)
}

func newApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, logger := loadConfig()
	app, err := bootstrap.New(cmd.Context(), cfg, logger, "agent")
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}
