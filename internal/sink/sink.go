// Package sink persists a pipeline's final value and reports where it went.
//
// The file and database sinks are idempotent: persisting the same value
// for the same run writes the same artifact again. The module and
// repository sinks are not; every call creates a new module version or a
// new commit.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/metrics"
	"go-pipeline-engine/pkg/utils"
)

// Result is where a sink put the value.
type Result struct {
	Location string           `json:"location"`
	Kind     model.OutputKind `json:"kind"`
}

type Sink interface {
	Kind() model.OutputKind
	Persist(ctx context.Context, value any, cfg map[string]any, pc *model.PipelineContext) (Result, error)
}

// Records is the artifact registry sinks report to. *store.DB implements it.
type Records interface {
	CreateRecord(ctx context.Context, rec store.Record) (store.Record, error)
	FileExists(path string) bool
	StatSize(path string) (int64, error)
}

// Set resolves sinks by output kind.
type Set struct {
	sinks   map[model.OutputKind]Sink
	metrics *metrics.Metrics
}

func NewSet(m *metrics.Metrics, sinks ...Sink) *Set {
	s := &Set{sinks: make(map[model.OutputKind]Sink, len(sinks)), metrics: m}
	for _, sk := range sinks {
		s.sinks[sk.Kind()] = sk
	}
	return s
}

func (s *Set) Get(kind model.OutputKind) (Sink, bool) {
	sk, ok := s.sinks[kind]
	return sk, ok
}

// Persist routes value to the sink named by spec.
func (s *Set) Persist(ctx context.Context, spec model.OutputSpec, value any, pc *model.PipelineContext) (Result, error) {
	sk, ok := s.sinks[spec.Kind]
	if !ok {
		s.metrics.RecordSink(string(spec.Kind), false)
		return Result{}, &SinkError{Kind: spec.Kind, Op: "resolve", Err: ErrUnknownSink}
	}

	res, err := sk.Persist(ctx, value, spec.Config, pc)
	s.metrics.RecordSink(string(spec.Kind), err == nil)
	return res, err
}

// payload is an encoded value ready to be written.
type payload struct {
	data        []byte
	ext         string
	contentType string
}

// encode writes strings as-is and everything else as indented JSON. The
// extension of a string payload comes from the format config, falling back
// to the format a previous step recorded in the run metadata.
func encode(value any, cfg map[string]any, pc *model.PipelineContext) (payload, error) {
	switch v := value.(type) {
	case string:
		return textPayload([]byte(v), cfg, pc), nil
	case []byte:
		return textPayload(v, cfg, pc), nil
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return payload{}, fmt.Errorf("encode value: %w", err)
	}
	return payload{data: append(data, '\n'), ext: "json", contentType: "application/json"}, nil
}

func textPayload(data []byte, cfg map[string]any, pc *model.PipelineContext) payload {
	format := cfgString(cfg, "format", "")
	if format == "" && pc != nil {
		if f, ok := pc.GetMetadata("format"); ok {
			format, _ = f.(string)
		}
	}
	if format == "" {
		format = "text"
	}

	p := payload{data: data, ext: utils.ExtensionFor(format)}
	if pc != nil {
		if ct, ok := pc.GetMetadata("content_type"); ok {
			p.contentType, _ = ct.(string)
		}
	}
	if p.contentType == "" {
		p.contentType = contentTypes[p.ext]
	}
	return p
}

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"html": "text/html",
	"txt":  "text/plain",
}

func cfgString(cfg map[string]any, key, fallback string) string {
	if s, ok := cfg[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func register(ctx context.Context, records Records, logger *zap.Logger, rec store.Record) error {
	if records == nil {
		return nil
	}
	if _, err := records.CreateRecord(ctx, rec); err != nil {
		return err
	}
	logger.Debug("registered artifact", zap.String("key", rec.Key), zap.Int64("size", rec.Size))
	return nil
}
