package pipeline

import (
	"fmt"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/pkg/utils"
)

// Validate applies the input contract's rules to a record or an array of
// records. Other shapes pass through untouched.
func Validate(value any, rules *model.ValidationRules) error {
	if rules == nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		return validateRecord(v, rules)
	case []any:
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("record %d: %w", i, model.InvalidInput("input", "object", item))
			}
			if err := validateRecord(rec, rules); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
	}
	return nil
}

func validateRecord(rec map[string]any, rules *model.ValidationRules) error {
	for _, field := range rules.RequiredFields {
		if _, ok := rec[field]; !ok {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for _, field := range rules.NumericFields {
		val, ok := rec[field]
		if !ok {
			continue
		}
		switch val.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("field %s must be numeric, got %s", field, model.TypeName(val))
		}
	}

	for field, min := range rules.MinValues {
		if n, ok := numericField(rec, field); ok && n < min {
			return fmt.Errorf("field %s below minimum: got %v, want >= %v", field, n, min)
		}
	}

	for field, max := range rules.MaxValues {
		if n, ok := numericField(rec, field); ok && n > max {
			return fmt.Errorf("field %s above maximum: got %v, want <= %v", field, n, max)
		}
	}
	return nil
}

func numericField(rec map[string]any, field string) (float64, bool) {
	val, ok := rec[field]
	if !ok {
		return 0, false
	}
	return utils.Numeric(val)
}
