package pipeline

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/steps"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Definition is the YAML form of a pipeline.
type Definition struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name,omitempty"`
	Description string           `yaml:"description,omitempty"`
	Input       model.InputSpec  `yaml:"input"`
	Output      model.OutputSpec `yaml:"output"`
	Steps       []steps.Spec     `yaml:"steps"`
}

func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("parse definition: %w", err)
	}
	if def.ID == "" {
		return Definition{}, errors.New("parse definition: id is required")
	}
	if len(def.Steps) == 0 {
		return Definition{}, fmt.Errorf("pipeline %q: no steps", def.ID)
	}
	return def, nil
}

// BuiltinDefinitions returns the definitions shipped with the engine.
func BuiltinDefinitions() ([]Definition, error) {
	return loadFS(builtinFS, "builtin")
}

// LoadDefinitions reads every *.yaml and *.yml file in dir.
func LoadDefinitions(dir string) ([]Definition, error) {
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, dir string) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, name)))
		if err != nil {
			return nil, err
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

var (
	inputKinds  = []model.InputKind{model.InputText, model.InputFile, model.InputAPI, model.InputDatabase}
	outputKinds = []model.OutputKind{model.OutputFile, model.OutputDatabase, model.OutputModule, model.OutputRepository}
)

// Build turns a definition into a runnable pipeline.
func Build(def Definition, deps steps.Deps) (*model.Pipeline, error) {
	p := &model.Pipeline{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Input:       def.Input,
		Output:      def.Output,
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Input.Kind == "" {
		p.Input.Kind = model.InputText
	}
	if !contains(inputKinds, p.Input.Kind) {
		return nil, fmt.Errorf("pipeline %q: unknown input kind %q", def.ID, p.Input.Kind)
	}
	if p.Output.Kind != "" && !contains(outputKinds, p.Output.Kind) {
		return nil, fmt.Errorf("pipeline %q: unknown output kind %q", def.ID, p.Output.Kind)
	}

	seen := make(map[string]bool, len(def.Steps))
	for _, spec := range def.Steps {
		step, err := steps.New(spec, deps)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", def.ID, err)
		}
		if seen[step.ID()] {
			return nil, fmt.Errorf("pipeline %q: duplicate step id %q", def.ID, step.ID())
		}
		seen[step.ID()] = true
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

// RegisterDefinitions builds and registers each definition.
func RegisterDefinitions(reg *Registry, defs []Definition, deps steps.Deps) error {
	for _, def := range defs {
		p, err := Build(def, deps)
		if err != nil {
			return err
		}
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
