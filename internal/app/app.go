// Package app wires configuration into a running engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-pipeline-engine/internal/api"
	"go-pipeline-engine/internal/api/handler"
	"go-pipeline-engine/internal/bridge"
	"go-pipeline-engine/internal/config"
	"go-pipeline-engine/internal/pipeline"
	"go-pipeline-engine/internal/sink"
	"go-pipeline-engine/internal/steps"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/internal/textgen"
	"go-pipeline-engine/pkg/metrics"
	"go-pipeline-engine/pkg/utils"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	DB       *store.DB
	Bridge   *bridge.Bridge
	Registry *pipeline.Registry
	Executor *pipeline.Executor
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	for _, dir := range []string{cfg.Storage.OutputDir, cfg.Storage.ModuleDir, cfg.Storage.RepositoryDir, cfg.Storage.InputDir} {
		if dir == "" {
			continue
		}
		if err := utils.NewOutputManager(dir).EnsureOutputDirExists(); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := store.Make(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()
	br := bridge.New(bridge.Config{
		Interpreter: cfg.Bridge.Interpreter,
		ScriptDir:   cfg.Bridge.ScriptDir,
		ScratchDir:  cfg.Bridge.ScratchDir,
		Timeout:     cfg.Bridge.Timeout,
	}, logger, m)

	deps := steps.Deps{
		Generator: generator(cfg.TextGen),
		Scripts:   br,
		Metrics:   m,
		Logger:    logger,
	}

	registry, err := pipeline.InitCatalog(func(reg *pipeline.Registry) error {
		return populate(reg, cfg.Pipelines.DefinitionsDir, deps)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load pipelines: %w", err)
	}

	sinks := sink.NewSet(m,
		sink.NewFileSink(cfg.Storage.OutputDir, db, logger),
		sink.NewModuleSink(cfg.Storage.ModuleDir, db, logger),
		sink.NewRepositorySink(cfg.Storage.RepositoryDir, sink.Author{
			Name:  cfg.Repository.AuthorName,
			Email: cfg.Repository.AuthorEmail,
		}, db, logger),
		sink.NewDatabaseSink(db, logger),
	)

	executor := pipeline.NewExecutor(registry, sinks,
		pipeline.WithInputLoader(&pipeline.InputLoader{
			Records:  db,
			FileRoot: cfg.Storage.InputDir,
		}),
		pipeline.WithRecorder(db),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	)

	logger.Info("engine ready", zap.Int("pipelines", len(registry.List())))
	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		DB:       db,
		Bridge:   br,
		Registry: registry,
		Executor: executor,
	}, nil
}

func generator(cfg config.TextGen) textgen.Generator {
	if cfg.URL == "" {
		return textgen.Local{}
	}
	g := textgen.NewHTTP(cfg.URL, cfg.Token, cfg.Timeout)
	g.MaxTokens = cfg.MaxTokens
	return g
}

// populate registers the built-in definitions followed by any found in
// dir. A definition in dir may not reuse a built-in id.
func populate(reg *pipeline.Registry, dir string, deps steps.Deps) error {
	defs, err := pipeline.BuiltinDefinitions()
	if err != nil {
		return err
	}
	if dir != "" {
		extra, err := pipeline.LoadDefinitions(dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		defs = append(defs, extra...)
	}
	return pipeline.RegisterDefinitions(reg, defs, deps)
}

func (a *App) Handler() http.Handler {
	h := handler.New(a.Registry, a.Executor, a.DB, a.Logger)
	return api.NewRouter(h, a.Metrics, a.Logger)
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.Config.Server.ListenAddr,
		Handler: a.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() error {
	return a.DB.Close()
}
