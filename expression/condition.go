package expression

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/funnel/model"
)

const OPERATOR_EQUAL string = "equal"
const OPERATOR_NOT_EQUAL string = "notEqual"
const OPERATOR_CONTAINS string = "contains"
const OPERATOR_GREATER_THAN string = "greaterThan"
const OPERATOR_LESS_THAN string = "lessThan"

// Evaluator is what the engine needs to branch on a conditional step.
type Evaluator interface {
	EvaluateCondition(props model.ConditionProperties, data map[string]any) (bool, error)
}

type DefaultEvaluator struct{}

var _ Evaluator = DefaultEvaluator{}

// EvaluateCondition uses the structured variable/operator/value form when a
// variable is set and the free text condition otherwise.
func (DefaultEvaluator) EvaluateCondition(props model.ConditionProperties, data map[string]any) (bool, error) {
	if len(strings.TrimSpace(props.Variable)) != 0 {
		return evaluateStructured(props, data)
	}
	return Evaluate(props.Condition, data)
}

func evaluateStructured(props model.ConditionProperties, data map[string]any) (bool, error) {
	actual := lookupPath(data, props.Variable)
	expected := props.Value
	switch props.Operator {
	case OPERATOR_EQUAL, "":
		return looseEqual(actual, expected), nil
	case OPERATOR_NOT_EQUAL:
		return !looseEqual(actual, expected), nil
	case OPERATOR_CONTAINS:
		if actual == nil {
			return false, nil
		}
		return strings.Contains(strings.ToLower(toString(actual)), strings.ToLower(expected)), nil
	case OPERATOR_GREATER_THAN:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a > b })
	case OPERATOR_LESS_THAN:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a < b })
	}
	return false, fmt.Errorf("unknown condition operator %s", props.Operator)
}

func compareNumbers(actual any, expected string, cmp func(a, b float64) bool) (bool, error) {
	if actual == nil {
		return false, nil
	}
	a, err := toNumber(actual)
	if err != nil {
		return false, err
	}
	b, err := toNumber(expected)
	if err != nil {
		return false, err
	}
	return cmp(a, b), nil
}

// lookupPath resolves dotted paths such as "customer.age".
func lookupPath(data map[string]any, path string) any {
	path = strings.TrimPrefix(strings.TrimSpace(path), CONTEXT_IDENTIFIER+".")
	var current any = data
	for _, part := range strings.Split(path, ".") {
		current = member(current, part)
		if current == nil {
			return nil
		}
	}
	return current
}
