package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/pkg/utils"
)

type operationConfig struct {
	Op         string            `json:"op"`
	Expression string            `json:"expression"`
	Fields     map[string]string `json:"fields"`
	Initial    any               `json:"initial"`
	Descending bool              `json:"descending"`
	Cleaners   []string          `json:"cleaners"`
}

type transformConfig struct {
	operationConfig
	Operation  string            `json:"operation"`
	Operations []operationConfig `json:"operations"`
}

type operation struct {
	op         string
	expr       *expression
	fields     map[string]*expression
	fieldOrder []string
	initial    any
	descending bool
	cleaners   []cleaner
}

// Transform runs filter, map, reduce, sort and clean operations over an
// array. Operations run in order; reduce turns the array into a scalar so
// it must come last.
type Transform struct {
	base
	ops []operation
}

func newTransform(b base, _ Deps) (model.Step, error) {
	var cfg transformConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}

	specs := cfg.Operations
	if len(specs) == 0 {
		single := cfg.operationConfig
		if single.Op == "" {
			single.Op = cfg.Operation
		}
		specs = []operationConfig{single}
	}

	t := &Transform{base: b}
	for i, s := range specs {
		op, err := compileOperation(s)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		if op.op == "reduce" && i != len(specs)-1 {
			return nil, errors.New("reduce must be the last operation")
		}
		t.ops = append(t.ops, op)
	}
	return t, nil
}

func compileOperation(s operationConfig) (operation, error) {
	op := operation{op: strings.ToLower(s.Op), descending: s.Descending, initial: utils.Normalize(s.Initial)}

	var err error
	switch op.op {
	case "filter", "sort", "reduce":
		op.expr, err = compile(s.Expression)
		if op.op == "reduce" && op.initial == nil {
			op.initial = 0.0
		}
	case "map":
		switch {
		case len(s.Fields) > 0:
			op.fields = make(map[string]*expression, len(s.Fields))
			for name, src := range s.Fields {
				if op.fields[name], err = compile(src); err != nil {
					return op, fmt.Errorf("field %s: %w", name, err)
				}
				op.fieldOrder = append(op.fieldOrder, name)
			}
			sort.Strings(op.fieldOrder)
		default:
			op.expr, err = compile(s.Expression)
		}
	case "clean":
		if len(s.Cleaners) == 0 {
			return op, errors.New("clean needs at least one cleaner")
		}
		op.cleaners, err = lookupCleaners(s.Cleaners)
	case "":
		return op, errors.New("missing op")
	default:
		return op, fmt.Errorf("unknown op %q", s.Op)
	}
	return op, err
}

func (t *Transform) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	var current any = input
	for _, op := range t.ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, ok := asArray(current)
		if !ok {
			return nil, model.InvalidInput(t.name, "array", current)
		}

		var err error
		switch op.op {
		case "filter":
			current, err = op.filter(items)
		case "map":
			current, err = op.mapItems(t.name, items)
		case "sort":
			current, err = op.sort(items)
		case "reduce":
			current, err = op.reduce(items)
		case "clean":
			current, err = op.clean(t.name, items, pc)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op.op, err)
		}
	}
	return current, nil
}

func asArray(v any) ([]any, bool) {
	switch v.(type) {
	case []any, []map[string]any, []model.GenericRecord, []string:
	default:
		return nil, false
	}
	switch n := utils.Normalize(v).(type) {
	case []any:
		return n, true
	case []model.GenericRecord:
		out := make([]any, len(n))
		for i, r := range n {
			out[i] = utils.Normalize(map[string]any(r))
		}
		return out, true
	}
	return nil, false
}

func (op operation) filter(items []any) ([]any, error) {
	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := op.expr.evaluate(params(item, i, nil))
		if err != nil {
			return nil, err
		}
		keep, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("filter expression %q returned %s, not a boolean", op.expr.src, model.TypeName(v))
		}
		if keep {
			out = append(out, item)
		}
	}
	return out, nil
}

func (op operation) mapItems(step string, items []any) ([]any, error) {
	out := make([]any, 0, len(items))
	for i, item := range items {
		p := params(item, i, nil)
		if op.expr != nil {
			v, err := op.expr.evaluate(p)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}

		rec, ok := item.(map[string]any)
		if !ok {
			return nil, model.InvalidInput(step, "array of objects", item)
		}
		next := make(map[string]any, len(rec)+len(op.fields))
		for k, v := range rec {
			next[k] = v
		}
		for _, name := range op.fieldOrder {
			v, err := op.fields[name].evaluate(p)
			if err != nil {
				return nil, err
			}
			next[name] = v
		}
		out = append(out, next)
	}
	return out, nil
}

func (op operation) sort(items []any) ([]any, error) {
	keys := make([]any, len(items))
	for i, item := range items {
		v, err := op.expr.evaluate(params(item, i, nil))
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := compareValues(keys[idx[a]], keys[idx[b]])
		if op.descending {
			return c > 0
		}
		return c < 0
	})

	out := make([]any, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}

func (op operation) reduce(items []any) (any, error) {
	acc := op.initial
	for i, item := range items {
		v, err := op.expr.evaluate(params(item, i, map[string]any{"acc": acc}))
		if err != nil {
			return nil, err
		}
		acc = v
	}
	return acc, nil
}

func (op operation) clean(step string, items []any, pc *model.PipelineContext) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, model.InvalidInput(step, "array of objects", item)
		}
		out = append(out, applyCleaners(rec, op.cleaners, pc))
	}
	return out, nil
}

// compareValues orders numbers numerically, strings lexically, and
// anything else by its printed form. nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
