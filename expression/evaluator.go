// Package expression evaluates branch conditions against an execution
// context. Conditions use JavaScript expression syntax but are never run by
// a JavaScript engine: goja's parser produces the syntax tree and only a
// small set of node types is interpreted here.
package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"
)

// CONTEXT_IDENTIFIER lets authors write context.age as well as age.
const CONTEXT_IDENTIFIER string = "context"

type UnsupportedExpressionError struct {
	Construct string
}

func (e UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("unsupported construct in condition: %s", e.Construct)
}

type SyntaxError struct {
	Expression string
	Err        error
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("invalid condition %q: %v", e.Expression, e.Err)
}

func (e SyntaxError) Unwrap() error {
	return e.Err
}

// Expr is a parsed condition, safe for concurrent evaluation.
type Expr struct {
	source string
	root   ast.Expression
}

func Compile(expression string) (*Expr, error) {
	src := strings.TrimSpace(expression)
	if len(src) == 0 {
		return nil, SyntaxError{Expression: expression, Err: fmt.Errorf("empty expression")}
	}
	program, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return nil, SyntaxError{Expression: expression, Err: err}
	}
	if len(program.Body) != 1 {
		return nil, UnsupportedExpressionError{Construct: "multiple statements"}
	}
	stmt, ok := program.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, UnsupportedExpressionError{Construct: fmt.Sprintf("%T", program.Body[0])}
	}
	if err := check(stmt.Expression); err != nil {
		return nil, err
	}
	return &Expr{source: src, root: stmt.Expression}, nil
}

func (e *Expr) String() string {
	return e.source
}

// Eval reports whether the expression is truthy for the given context.
func (e *Expr) Eval(data map[string]any) (bool, error) {
	val, err := eval(e.root, data)
	if err != nil {
		return false, err
	}
	return truthy(val), nil
}

func Evaluate(expression string, data map[string]any) (bool, error) {
	expr, err := Compile(expression)
	if err != nil {
		return false, err
	}
	return expr.Eval(data)
}

// check rejects everything outside the supported grammar before evaluation.
func check(node ast.Expression) error {
	switch n := node.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral, *ast.Identifier:
		return nil
	case *ast.DotExpression:
		return check(n.Left)
	case *ast.BracketExpression:
		if err := check(n.Left); err != nil {
			return err
		}
		return check(n.Member)
	case *ast.UnaryExpression:
		if n.Postfix {
			return UnsupportedExpressionError{Construct: n.Operator.String()}
		}
		switch n.Operator {
		case token.NOT, token.MINUS, token.PLUS:
			return check(n.Operand)
		}
		return UnsupportedExpressionError{Construct: n.Operator.String()}
	case *ast.BinaryExpression:
		switch n.Operator {
		case token.LOGICAL_AND, token.LOGICAL_OR,
			token.EQUAL, token.NOT_EQUAL, token.STRICT_EQUAL, token.STRICT_NOT_EQUAL,
			token.LESS, token.LESS_OR_EQUAL, token.GREATER, token.GREATER_OR_EQUAL,
			token.PLUS, token.MINUS, token.MULTIPLY, token.SLASH, token.REMAINDER:
		default:
			return UnsupportedExpressionError{Construct: n.Operator.String()}
		}
		if err := check(n.Left); err != nil {
			return err
		}
		return check(n.Right)
	}
	return UnsupportedExpressionError{Construct: fmt.Sprintf("%T", node)}
}

func eval(node ast.Expression, data map[string]any) (any, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return toNumber(n.Value)
	case *ast.StringLiteral:
		return string(n.Value), nil
	case *ast.BooleanLiteral:
		return n.Value, nil
	case *ast.NullLiteral:
		return nil, nil
	case *ast.Identifier:
		name := string(n.Name)
		if name == CONTEXT_IDENTIFIER {
			if _, shadowed := data[name]; !shadowed {
				return data, nil
			}
		}
		return data[name], nil
	case *ast.DotExpression:
		left, err := eval(n.Left, data)
		if err != nil {
			return nil, err
		}
		return member(left, string(n.Identifier.Name)), nil
	case *ast.BracketExpression:
		left, err := eval(n.Left, data)
		if err != nil {
			return nil, err
		}
		key, err := eval(n.Member, data)
		if err != nil {
			return nil, err
		}
		return member(left, toString(key)), nil
	case *ast.UnaryExpression:
		operand, err := eval(n.Operand, data)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case token.NOT:
			return !truthy(operand), nil
		case token.MINUS:
			f, err := toNumber(operand)
			if err != nil {
				return nil, err
			}
			return -f, nil
		default:
			return toNumber(operand)
		}
	case *ast.BinaryExpression:
		return evalBinary(n, data)
	}
	return nil, UnsupportedExpressionError{Construct: fmt.Sprintf("%T", node)}
}

func evalBinary(n *ast.BinaryExpression, data map[string]any) (any, error) {
	left, err := eval(n.Left, data)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case token.LOGICAL_AND:
		if !truthy(left) {
			return false, nil
		}
		right, err := eval(n.Right, data)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case token.LOGICAL_OR:
		if truthy(left) {
			return true, nil
		}
		right, err := eval(n.Right, data)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}
	right, err := eval(n.Right, data)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case token.EQUAL:
		return looseEqual(left, right), nil
	case token.NOT_EQUAL:
		return !looseEqual(left, right), nil
	case token.STRICT_EQUAL:
		return strictEqual(left, right), nil
	case token.STRICT_NOT_EQUAL:
		return !strictEqual(left, right), nil
	case token.LESS, token.LESS_OR_EQUAL, token.GREATER, token.GREATER_OR_EQUAL:
		return compare(n.Operator, left, right), nil
	case token.PLUS:
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return toString(left) + toString(right), nil
		}
	}
	return arithmetic(n.Operator, left, right)
}

func arithmetic(op token.Token, left, right any) (any, error) {
	l, err := toNumber(left)
	if err != nil {
		return nil, err
	}
	r, err := toNumber(right)
	if err != nil {
		return nil, err
	}
	switch op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.MULTIPLY:
		return l * r, nil
	case token.SLASH:
		return l / r, nil
	case token.REMAINDER:
		return math.Mod(l, r), nil
	}
	return nil, UnsupportedExpressionError{Construct: op.String()}
}

func compare(op token.Token, left, right any) bool {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case token.LESS:
			return ls < rs
		case token.LESS_OR_EQUAL:
			return ls <= rs
		case token.GREATER:
			return ls > rs
		default:
			return ls >= rs
		}
	}
	l, err := toNumber(left)
	if err != nil || left == nil {
		return false
	}
	r, err := toNumber(right)
	if err != nil || right == nil {
		return false
	}
	switch op {
	case token.LESS:
		return l < r
	case token.LESS_OR_EQUAL:
		return l <= r
	case token.GREATER:
		return l > r
	default:
		return l >= r
	}
}

func looseEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return ls == rs
		}
	}
	if isNumeric(left) || isNumeric(right) {
		l, lerr := toNumber(left)
		r, rerr := toNumber(right)
		return lerr == nil && rerr == nil && l == r
	}
	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			return lb == rb
		}
		return false
	}
	return reflect.DeepEqual(left, right)
}

func strictEqual(left, right any) bool {
	if isNumeric(left) && isNumeric(right) {
		l, _ := toNumber(left)
		r, _ := toNumber(right)
		return l == r
	}
	if reflect.TypeOf(left) != reflect.TypeOf(right) {
		return false
	}
	return reflect.DeepEqual(left, right)
}

func member(value any, key string) any {
	switch v := value.(type) {
	case map[string]any:
		return v[key]
	case map[string]string:
		return v[key]
	}
	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return len(v) > 0
	case map[string]any:
		return true
	}
	if isNumeric(value) {
		f, err := toNumber(value)
		return err == nil && f != 0 && !math.IsNaN(f)
	}
	return true
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if len(s) == 0 {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%T is not a number", value)
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}
