package rules

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Progress evaluates a challenge condition against a snapshot of activity
// fields and maps the result to 0..100. Boolean conditions are all-or-
// nothing; numeric conditions are treated as a percentage and clamped.
// A challenge counts as achieved when progress reaches 100.
func Progress(condition string, snapshot map[string]interface{}) (int, error) {
	expr, err := govaluate.NewEvaluableExpression(condition)
	if err != nil {
		return 0, fmt.Errorf("parse condition %q: %w", condition, err)
	}

	result, err := expr.Evaluate(snapshot)
	if err != nil {
		return 0, fmt.Errorf("evaluate condition %q: %w", condition, err)
	}

	switch v := result.(type) {
	case bool:
		if v {
			return 100, nil
		}
		return 0, nil
	case float64:
		return clamp(int(v)), nil
	default:
		return 0, fmt.Errorf("condition %q yielded %T, want bool or number", condition, result)
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
