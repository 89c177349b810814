package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pipeline-engine/internal/model"
)

func people() []any {
	return []any{
		map[string]any{"name": " ada ", "age": 36.0, "team": "core"},
		map[string]any{"name": "linus", "age": 17.0, "team": "kernel"},
		map[string]any{"name": "grace", "age": 85.0, "team": "core"},
	}
}

func TestTransformOperations(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		input  any
		want   any
	}{
		{
			name:   "filter on top-level field",
			config: map[string]any{"op": "filter", "expression": "age >= 18"},
			input:  people(),
			want:   []any{people()[0], people()[2]},
		},
		{
			name:   "filter with accessor",
			config: map[string]any{"operation": "filter", "expression": "item.team == 'kernel'"},
			input:  people(),
			want:   []any{people()[1]},
		},
		{
			name:   "map to scalar",
			config: map[string]any{"op": "map", "expression": "age * 2"},
			input:  people(),
			want:   []any{72.0, 34.0, 170.0},
		},
		{
			name:   "map fields",
			config: map[string]any{"op": "map", "fields": map[string]any{"adult": "age >= 18", "pos": "index + 1"}},
			input:  []any{map[string]any{"age": 20.0}},
			want:   []any{map[string]any{"age": 20.0, "adult": true, "pos": 1.0}},
		},
		{
			name:   "sort descending",
			config: map[string]any{"op": "sort", "expression": "age", "descending": true},
			input:  people(),
			want:   []any{people()[2], people()[0], people()[1]},
		},
		{
			name:   "reduce sum",
			config: map[string]any{"op": "reduce", "expression": "acc + age"},
			input:  people(),
			want:   138.0,
		},
		{
			name:   "scalars",
			config: map[string]any{"op": "filter", "expression": "item > 2"},
			input:  []any{1, 2, 3, 4},
			want:   []any{3.0, 4.0},
		},
		{
			name: "chained operations",
			config: map[string]any{"operations": []any{
				map[string]any{"op": "clean", "cleaners": []any{"trimStrings", "normalizeNames"}},
				map[string]any{"op": "filter", "expression": "lower(team) == 'core'"},
				map[string]any{"op": "sort", "expression": "lower(name)"},
			}},
			input: people(),
			want: []any{
				map[string]any{"name": "Ada", "age": 36.0, "team": "Core"},
				map[string]any{"name": "Grace", "age": 85.0, "team": "Core"},
			},
		},
		{
			name:   "empty array",
			config: map[string]any{"op": "filter", "expression": "age > 1"},
			input:  []any{},
			want:   []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStep(t, "transform", tt.config, Deps{})
			out, err := s.Execute(context.Background(), tt.input, testContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTransformErrors(t *testing.T) {
	s := newStep(t, "transform", map[string]any{"op": "filter", "expression": "age > 1"}, Deps{})

	_, err := s.Execute(context.Background(), "not an array", testContext())
	assert.ErrorIs(t, err, model.ErrInvalidInputType)

	_, err = s.Execute(context.Background(), []any{map[string]any{"name": "x"}}, testContext())
	assert.Error(t, err, "missing parameter")

	nonBool := newStep(t, "transform", map[string]any{"op": "filter", "expression": "age + 1"}, Deps{})
	_, err = nonBool.Execute(context.Background(), people(), testContext())
	assert.ErrorContains(t, err, "not a boolean")
}

func TestTransformConfigErrors(t *testing.T) {
	configs := []map[string]any{
		{},
		{"op": "explode"},
		{"op": "filter", "expression": ""},
		{"op": "filter", "expression": "age >"},
		{"op": "clean"},
		{"op": "clean", "cleaners": []any{"shred"}},
		{"operations": []any{
			map[string]any{"op": "reduce", "expression": "acc + 1"},
			map[string]any{"op": "filter", "expression": "true"},
		}},
	}
	for _, cfg := range configs {
		_, err := New(Spec{Type: "transform", Config: cfg}, Deps{})
		assert.Error(t, err, "%v", cfg)
	}
}

func TestCleanAddMetadata(t *testing.T) {
	s := newStep(t, "transform", map[string]any{"op": "clean", "cleaners": []any{"removeNulls", "addMetadata"}}, Deps{})
	out, err := s.Execute(context.Background(), []any{map[string]any{"a": nil, "b": 1.0}}, testContext())
	require.NoError(t, err)

	rec := out.([]any)[0].(map[string]any)
	assert.NotContains(t, rec, "a")
	assert.Equal(t, "pipeline", rec["_pipeline_id"])
	assert.Equal(t, "run", rec["_run_id"])
	assert.NotEmpty(t, rec["_processed_at"])
}
