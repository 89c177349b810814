package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/app"
	"go-pipeline-engine/internal/config"
	"go-pipeline-engine/pkg/logger"
)

// @title Pipeline Engine API
// @version 1.0
// @description Runs registered data pipelines and advises on execution tier placement.
// @BasePath /api/v1
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
