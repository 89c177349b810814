package utils

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses strings like "5m". An empty d yields fallback;
// a malformed or non-positive one is an error.
func ParseDuration(d string, fallback time.Duration) (time.Duration, error) {
	if d == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", d)
	}
	return duration, nil
}

// ParseValue converts a raw cell into the value a JSON decoder would have
// produced: float64, bool or string.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}

// Numeric converts supported types to float64.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case nil, bool:
		return 0, false
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// Normalize rewrites Go numeric types to float64 throughout v, so values
// built in code compare the same way as values decoded from JSON.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, x := range val {
			out[k] = Normalize(x)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, x := range val {
			out[i] = Normalize(x)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, x := range val {
			out[i] = Normalize(x)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float()
		}
		return v
	}
}
