package model

import "context"

// GenericRecord is a schema-agnostic map for any data source
type GenericRecord map[string]interface{}

// ValidationRules defines the shape an input record must have
type ValidationRules struct {
	RequiredFields []string           `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	NumericFields  []string           `json:"numeric_fields,omitempty" yaml:"numeric_fields,omitempty"`
	MinValues      map[string]float64 `json:"min_values,omitempty" yaml:"min_values,omitempty"`
	MaxValues      map[string]float64 `json:"max_values,omitempty" yaml:"max_values,omitempty"`
}

type StepKind string

const (
	StepKindTransform StepKind = "transform"
	StepKindAnalyze   StepKind = "analyze"
	StepKindExtract   StepKind = "extract"
	StepKindGenerate  StepKind = "generate"
	StepKindExport    StepKind = "export"
)

// Step is one processing stage. Steps hold only their configuration; all
// per-run state goes through the PipelineContext.
type Step interface {
	ID() string
	Name() string
	Kind() StepKind
	Config() map[string]any
	Execute(ctx context.Context, input any, pc *PipelineContext) (any, error)
}

type InputKind string

const (
	InputFile     InputKind = "file"
	InputAPI      InputKind = "api"
	InputDatabase InputKind = "database"
	InputText     InputKind = "text"
)

type OutputKind string

const (
	OutputFile       OutputKind = "file"
	OutputDatabase   OutputKind = "database"
	OutputModule     OutputKind = "module"
	OutputRepository OutputKind = "repository"
)

// InputSpec is the declared input contract of a pipeline
type InputSpec struct {
	Kind       InputKind        `json:"kind" yaml:"kind"`
	Config     map[string]any   `json:"config,omitempty" yaml:"config,omitempty"`
	Validation *ValidationRules `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// OutputSpec selects the sink and its shape config
type OutputSpec struct {
	Kind   OutputKind     `json:"kind" yaml:"kind"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Pipeline is an ordered list of steps with its input/output contracts.
// It is treated as immutable once registered.
type Pipeline struct {
	ID          string
	Name        string
	Description string
	Input       InputSpec
	Output      OutputSpec
	Steps       []Step
}

type StepInfo struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Kind   StepKind       `json:"kind"`
	Config map[string]any `json:"config,omitempty"`
}

// PipelineInfo is the serializable view of a Pipeline
type PipelineInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Input       InputSpec  `json:"input"`
	Output      OutputSpec `json:"output"`
	Steps       []StepInfo `json:"steps"`
}

func (p *Pipeline) Info() PipelineInfo {
	info := PipelineInfo{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Input:       p.Input,
		Output:      p.Output,
		Steps:       make([]StepInfo, 0, len(p.Steps)),
	}
	for _, s := range p.Steps {
		info.Steps = append(info.Steps, StepInfo{ID: s.ID(), Name: s.Name(), Kind: s.Kind(), Config: s.Config()})
	}
	return info
}
