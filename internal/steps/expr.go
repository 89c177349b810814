package steps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/govaluate"

	"go-pipeline-engine/pkg/utils"
)

// Expressions are evaluated by govaluate, which only supports literals,
// parameters, field accessors, operators and the functions below. Nothing
// in the expression text can reach the host runtime.
var exprFunctions = map[string]govaluate.ExpressionFunction{
	"len": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("len takes one argument")
		}
		switch v := args[0].(type) {
		case string:
			return float64(len([]rune(v))), nil
		case []interface{}:
			return float64(len(v)), nil
		case map[string]interface{}:
			return float64(len(v)), nil
		case nil:
			return 0.0, nil
		}
		return nil, fmt.Errorf("len of %T", args[0])
	},
	"lower": stringFunc(strings.ToLower),
	"upper": stringFunc(strings.ToUpper),
	"trim":  stringFunc(strings.TrimSpace),
	"contains": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, errors.New("contains takes two arguments")
		}
		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		return strings.Contains(s, sub), nil
	},
	"number": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("number takes one argument")
		}
		f, ok := utils.Numeric(args[0])
		if !ok {
			return nil, fmt.Errorf("%v is not a number", args[0])
		}
		return f, nil
	},
}

func stringFunc(fn func(string) string) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("expected one argument")
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", args[0])
		}
		return fn(s), nil
	}
}

type expression struct {
	src  string
	eval *govaluate.EvaluableExpression
}

func compile(src string) (*expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty expression")
	}
	e, err := govaluate.NewEvaluableExpressionWithFunctions(src, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", src, err)
	}
	return &expression{src: src, eval: e}, nil
}

// params exposes the element as "item", its top-level fields by name when
// it is an object, plus "index" and any extras such as "acc".
func params(item any, index int, extra map[string]any) map[string]interface{} {
	p := make(map[string]interface{})
	if rec, ok := item.(map[string]any); ok {
		for k, v := range rec {
			p[k] = v
		}
	}
	p["item"] = item
	p["index"] = float64(index)
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func (e *expression) evaluate(p map[string]interface{}) (any, error) {
	v, err := e.eval.Evaluate(p)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", e.src, err)
	}
	return utils.Normalize(v), nil
}
