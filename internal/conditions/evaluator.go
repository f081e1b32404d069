// Package conditions evaluates the JSON-logic expressions gating
// synchronizations and rules.
package conditions

import (
	"encoding/json"
	"fmt"

	jsonlogic "github.com/diegoholiveira/jsonlogic/v3"
)

// Evaluator applies boolean JSON-logic expressions to objects
type Evaluator struct{}

// NewEvaluator creates a new condition evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate applies the expression to the data. An empty or null expression
// always passes. Any non-false, non-empty result counts as true, matching
// JSON-logic truthiness.
func (e *Evaluator) Evaluate(expr json.RawMessage, data map[string]any) (bool, error) {
	if len(expr) == 0 {
		return true, nil
	}

	var logic any
	if err := json.Unmarshal(expr, &logic); err != nil {
		return false, fmt.Errorf("invalid condition expression: %w", err)
	}
	if logic == nil {
		return true, nil
	}
	if obj, ok := logic.(map[string]any); ok && len(obj) == 0 {
		return true, nil
	}

	result, err := jsonlogic.ApplyInterface(logic, map[string]any(data))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}

	return isTruthy(result), nil
}

func isTruthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	}
	return true
}
