package expression

import (
	"errors"
	"testing"

	"github.com/mohitkumar/funnel/model"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	data := map[string]any{
		"age":     20,
		"name":    "Ana",
		"score":   7.5,
		"vip":     true,
		"plan":    "gold",
		"count":   "3",
		"profile": map[string]any{"city": "Recife", "orders": float64(4)},
	}
	for expr, expected := range map[string]bool{
		"age>18":                         true,
		"age > 18 && vip":                true,
		"age < 18 || plan == 'gold'":     true,
		"!(age >= 21)":                   true,
		"context.age === 20":             true,
		"context['plan'] != \"silver\"":  true,
		"profile.city == 'Recife'":       true,
		"profile.orders * 2 >= 8":        true,
		"count == 3":                     true,
		"count === 3":                    false,
		"missing > 1":                    false,
		"missing == null":                true,
		"score % 2 > 1":                  true,
		"name + ' Silva' == 'Ana Silva'": true,
		"-age < 0":                       true,
		"profile.unknown.deeper == null": true,
		"vip && plan == 'silver'":        false,
	} {
		t.Run(expr, func(t *testing.T) {
			got, err := Evaluate(expr, data)
			require.NoError(t, err)
			require.Equal(t, expected, got)
		})
	}
}

func TestEvaluateRejectsCode(t *testing.T) {
	for _, expr := range []string{
		"age = 10",
		"alert(1)",
		"(function(){ return true })()",
		"age++",
		"a ? b : c",
		"x => x",
		"age > 1; vip",
		"new Date()",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr, map[string]any{"age": 1})
			require.Error(t, err)
		})
	}
}

func TestEvaluateErrorTypes(t *testing.T) {
	_, err := Evaluate("alert(1)", nil)
	var unsupported UnsupportedExpressionError
	require.True(t, errors.As(err, &unsupported))

	_, err = Evaluate("age >", nil)
	var syntax SyntaxError
	require.True(t, errors.As(err, &syntax))

	_, err = Evaluate("   ", nil)
	require.True(t, errors.As(err, &syntax))
}

func TestCompiledExpressionIsReusable(t *testing.T) {
	expr, err := Compile("age > 18")
	require.NoError(t, err)

	adult, err := expr.Eval(map[string]any{"age": 20})
	require.NoError(t, err)
	require.True(t, adult)

	minor, err := expr.Eval(map[string]any{"age": 10})
	require.NoError(t, err)
	require.False(t, minor)
	require.Equal(t, "age > 18", expr.String())
}

func TestEvaluateStructuredCondition(t *testing.T) {
	data := map[string]any{"answer": "Yes please", "customer": map[string]any{"age": 30}}
	ev := DefaultEvaluator{}
	for name, tc := range map[string]struct {
		props    model.ConditionProperties
		expected bool
	}{
		"equal":        {model.ConditionProperties{Variable: "customer.age", Operator: OPERATOR_EQUAL, Value: "30"}, true},
		"not equal":    {model.ConditionProperties{Variable: "customer.age", Operator: OPERATOR_NOT_EQUAL, Value: "30"}, false},
		"contains":     {model.ConditionProperties{Variable: "answer", Operator: OPERATOR_CONTAINS, Value: "yes"}, true},
		"greater than": {model.ConditionProperties{Variable: "context.customer.age", Operator: OPERATOR_GREATER_THAN, Value: "18"}, true},
		"less than":    {model.ConditionProperties{Variable: "customer.age", Operator: OPERATOR_LESS_THAN, Value: "18"}, false},
		"missing var":  {model.ConditionProperties{Variable: "nope", Operator: OPERATOR_GREATER_THAN, Value: "1"}, false},
		"free text":    {model.ConditionProperties{Condition: "customer.age > 18"}, true},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ev.EvaluateCondition(tc.props, data)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}

	_, err := ev.EvaluateCondition(model.ConditionProperties{Variable: "answer", Operator: "matches"}, data)
	require.Error(t, err)
}
