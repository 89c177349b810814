// Package pipeline holds the pipeline catalogue and the executor that runs
// a pipeline's steps in order and hands the final value to its sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/sink"
	"go-pipeline-engine/pkg/metrics"
)

// Persister stores a run's final value. *sink.Set implements it.
type Persister interface {
	Persist(ctx context.Context, spec model.OutputSpec, value any, pc *model.PipelineContext) (sink.Result, error)
}

// Recorder keeps finished runs. *store.DB implements it.
type Recorder interface {
	SaveRun(ctx context.Context, r *model.PipelineResult) error
}

type Executor struct {
	registry *Registry
	sinks    Persister
	inputs   *InputLoader
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type Option func(*Executor)

func WithInputLoader(l *InputLoader) Option { return func(e *Executor) { e.inputs = l } }
func WithRecorder(r Recorder) Option        { return func(e *Executor) { e.recorder = r } }
func WithMetrics(m *metrics.Metrics) Option { return func(e *Executor) { e.metrics = m } }
func WithLogger(l *zap.Logger) Option       { return func(e *Executor) { e.logger = l } }

func NewExecutor(registry *Registry, sinks Persister, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		sinks:    sinks,
		inputs:   &InputLoader{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("executor")
	return e
}

// Execute runs the pipeline registered under id. The only error returned
// is ErrPipelineNotFound; every other failure is reported in the result.
func (e *Executor) Execute(ctx context.Context, id, userID string, input any) (*model.PipelineResult, error) {
	p, ok := e.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, id)
	}
	return e.Run(ctx, p, userID, input), nil
}

// Run executes p against input and always returns a result.
func (e *Executor) Run(ctx context.Context, p *model.Pipeline, userID string, input any) *model.PipelineResult {
	pc := model.NewPipelineContext(userID, p.ID, uuid.NewString())
	logger := e.logger.With(zap.String("pipeline", p.ID), zap.String("run", pc.RunID))
	logger.Info("run started", zap.Int("steps", len(p.Steps)))

	value, out, err := e.run(ctx, p, pc, input)
	e.cleanup(pc, logger)

	result := &model.PipelineResult{
		PipelineID: p.ID,
		RunID:      pc.RunID,
		UserID:     userID,
		StartedAt:  pc.StartedAt,
		EndedAt:    time.Now(),
	}
	result.DurationMs = result.EndedAt.Sub(result.StartedAt).Milliseconds()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
		result.Result = value
		result.OutputLocation = out.Location
		result.OutputKind = out.Kind
	}
	result.Logs = pc.Logs()
	result.Metadata = pc.Metadata()

	e.metrics.RecordRun(p.ID, result.Success, result.EndedAt.Sub(result.StartedAt))
	if result.Success {
		logger.Info("run completed", zap.Int64("duration_ms", result.DurationMs), zap.String("output", out.Location))
	} else {
		logger.Warn("run failed", zap.Int64("duration_ms", result.DurationMs), zap.String("error", result.Error))
	}

	if e.recorder != nil {
		if err := e.recorder.SaveRun(context.WithoutCancel(ctx), result); err != nil {
			logger.Error("failed to record run", zap.Error(err))
		}
	}
	return result
}

func (e *Executor) run(ctx context.Context, p *model.Pipeline, pc *model.PipelineContext, input any) (any, sink.Result, error) {
	value, err := e.inputs.Load(ctx, p.Input, input)
	if err != nil {
		pc.Log("input: failed: %v", err)
		return nil, sink.Result{}, fmt.Errorf("input: %w", err)
	}

	n := len(p.Steps)
	timings := make(map[string]int64, n)
	defer pc.SetMetadata("step_timings_ms", timings)

	for i, step := range p.Steps {
		pc.Log("step %d/%d %s: started", i+1, n, step.Name())

		start := time.Now()
		if err = ctx.Err(); err == nil {
			value, err = step.Execute(ctx, value, pc)
		}
		timings[step.ID()] = time.Since(start).Milliseconds()

		if err != nil {
			pc.Log("step %d/%d %s: failed: %v", i+1, n, step.Name(), err)
			e.metrics.RecordStepFailure(string(step.Kind()))
			return nil, sink.Result{}, &model.StepError{Step: step.Name(), Err: err}
		}
	}

	if p.Output.Kind == "" {
		return value, sink.Result{}, nil
	}

	if e.sinks == nil {
		err := &sink.SinkError{Kind: p.Output.Kind, Op: "resolve", Err: sink.ErrUnknownSink}
		pc.Log("output: failed: %v", err)
		return nil, sink.Result{}, err
	}
	out, err := e.sinks.Persist(ctx, p.Output, value, pc)
	if err != nil {
		pc.Log("output: failed: %v", err)
		return nil, sink.Result{}, err
	}
	pc.Log("output: %s %s", out.Kind, out.Location)
	return value, out, nil
}

// cleanup removes the run's scratch files. Files already gone count as
// removed. Failures are reported without their paths.
func (e *Executor) cleanup(pc *model.PipelineContext, logger *zap.Logger) {
	failed := 0
	for _, path := range pc.TempFiles() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed++
			logger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
		}
	}
	if failed > 0 {
		pc.Log("cleanup: %d scratch file(s) could not be removed", failed)
	}
}
