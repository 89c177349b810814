package steps

import (
	"context"
	"errors"

	"go-pipeline-engine/internal/model"
)

type extractConfig struct {
	Fields []string `json:"fields"`
	// Rename maps a source field to its output name.
	Rename map[string]string `json:"rename"`
	// Strict fails when a field is missing instead of skipping it.
	Strict bool `json:"strict"`
}

// Extract projects an object, or each object of an array, onto a list of
// fields.
type Extract struct {
	base
	cfg extractConfig
}

func newExtract(b base, _ Deps) (model.Step, error) {
	var cfg extractConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Fields) == 0 {
		return nil, errors.New("extract needs at least one field")
	}
	return &Extract{base: b, cfg: cfg}, nil
}

func (e *Extract) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	switch v := input.(type) {
	case map[string]any:
		return e.project(v)
	case model.GenericRecord:
		return e.project(v)
	}

	recs, err := records(e.name, input)
	if err != nil {
		return nil, model.InvalidInput(e.name, "object or array of objects", input)
	}
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		p, err := e.project(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Extract) project(rec map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(e.cfg.Fields))
	for _, f := range e.cfg.Fields {
		v, ok := rec[f]
		if !ok {
			if e.cfg.Strict {
				return nil, errors.New("missing field " + f)
			}
			continue
		}
		name := f
		if to, ok := e.cfg.Rename[f]; ok && to != "" {
			name = to
		}
		out[name] = v
	}
	return out, nil
}
