// Package steps is the catalogue of pipeline steps. Every step is built
// from a Spec and is stateless apart from its configuration.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/bridge"
	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/textgen"
	"go-pipeline-engine/pkg/metrics"
)

// Spec is the declarative form of a step inside a pipeline definition.
type Spec struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ScriptRunner is the part of the script bridge the script step needs.
type ScriptRunner interface {
	Execute(ctx context.Context, req bridge.Request) (any, error)
}

// Deps are the collaborators shared by all steps.
type Deps struct {
	Generator textgen.Generator
	Scripts   ScriptRunner
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type factory func(b base, deps Deps) (model.Step, error)

var factories = map[string]factory{
	"classify":  newClassify,
	"summarize": newSummarize,
	"transform": newTransform,
	"format":    newFormat,
	"script":    newScript,
	"optimize":  newOptimize,
	"analyze":   newAnalyze,
	"aggregate": newAggregate,
	"extract":   newExtract,
}

var kinds = map[string]model.StepKind{
	"classify":  model.StepKindAnalyze,
	"summarize": model.StepKindGenerate,
	"transform": model.StepKindTransform,
	"format":    model.StepKindExport,
	"script":    model.StepKindTransform,
	"optimize":  model.StepKindTransform,
	"analyze":   model.StepKindAnalyze,
	"aggregate": model.StepKindAnalyze,
	"extract":   model.StepKindExtract,
}

// Types lists the registered step types.
func Types() []string {
	out := make([]string, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// New builds the step described by spec.
func New(spec Spec, deps Deps) (model.Step, error) {
	f, ok := factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("unknown step type %q", spec.Type)
	}
	if spec.ID == "" {
		spec.ID = spec.Type
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	step, err := f(base{
		id:     spec.ID,
		name:   spec.Name,
		kind:   kinds[spec.Type],
		config: maps.Clone(spec.Config),
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", spec.ID, err)
	}
	return step, nil
}

type base struct {
	id     string
	name   string
	kind   model.StepKind
	config map[string]any
}

func (b base) ID() string             { return b.id }
func (b base) Name() string           { return b.name }
func (b base) Kind() model.StepKind   { return b.kind }
func (b base) Config() map[string]any { return maps.Clone(b.config) }

// decode copies the raw config bag into a typed struct.
func (b base) decode(dst any) error {
	if len(b.config) == 0 {
		return nil
	}
	raw, err := json.Marshal(b.config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// textInput accepts a string or an object carrying a string "text" field.
// For objects the remaining fields are returned so text steps can be chained.
func textInput(step string, input any) (string, map[string]any, error) {
	switch v := input.(type) {
	case string:
		return v, nil, nil
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s, v, nil
		}
	case model.GenericRecord:
		if s, ok := v["text"].(string); ok {
			return s, map[string]any(v), nil
		}
	}
	return "", nil, model.InvalidInput(step, "text", input)
}

func merge(carry map[string]any, fields map[string]any) map[string]any {
	out := make(map[string]any, len(carry)+len(fields))
	maps.Copy(out, carry)
	maps.Copy(out, fields)
	return out
}

// records accepts an array whose elements are objects.
func records(step string, input any) ([]map[string]any, error) {
	switch v := input.(type) {
	case []map[string]any:
		return v, nil
	case []model.GenericRecord:
		out := make([]map[string]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			switch r := item.(type) {
			case map[string]any:
				out = append(out, r)
			case model.GenericRecord:
				out = append(out, r)
			default:
				return nil, model.InvalidInput(step, "array of objects", input)
			}
		}
		return out, nil
	}
	return nil, model.InvalidInput(step, "array of objects", input)
}
