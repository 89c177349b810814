package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/app"
	"go-pipeline-engine/internal/config"
	"go-pipeline-engine/pkg/logger"
)

const cliName = "pipeline"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   cliName,
	Short: "Pipeline engine",
	Long: `Run registered data pipelines, inspect them, and get placement advice
for work items across execution tiers.

Configuration is read from PIPELINE_* environment variables.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides PIPELINE_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(tiersCmd)
	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(optimizeCmd)
}

// setup loads configuration and builds the engine.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
