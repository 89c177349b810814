package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInputType = errors.New("invalid input type")
	ErrStepExecution    = errors.New("step execution failed")
)

// InvalidInput reports that step got a value outside its declared shape.
func InvalidInput(step, want string, got any) error {
	return fmt.Errorf("%w: %s expects %s, got %s", ErrInvalidInputType, step, want, TypeName(got))
}

// StepError annotates a step failure with the step name.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrStepExecution, e.Err}
}

// TypeName describes a decoded JSON value without echoing it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "text"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case []any, []map[string]any, []GenericRecord:
		return "array"
	case map[string]any, GenericRecord:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
