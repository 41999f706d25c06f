// Package expr provides the restricted CEL-based formula evaluator.
//
// Formulas are parsed with cel-go and walked against an allow-list
// before evaluation: numeric and boolean literals, named variables,
// the arithmetic operators + - * /, unary minus, comparisons,
// the boolean operators && || !, and the functions max and min.
// Everything else CEL can parse (field selection, lists, maps,
// comprehensions, other functions) is rejected at compile time, so a
// formula can never reach data it was not given.
package expr

import (
	"fmt"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
)

// ExpressionError reports a formula that could not be compiled or
// evaluated: disallowed syntax, an undefined variable, a type
// mismatch or division by zero.
type ExpressionError struct {
	Expression string
	Detail     string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %s", e.Expression, e.Detail)
}

func errf(src, format string, args ...any) *ExpressionError {
	return &ExpressionError{Expression: src, Detail: fmt.Sprintf(format, args...)}
}

// Value is an evaluation result, either a number or a boolean.
type Value struct {
	Num    float64
	Bool   bool
	IsBool bool
}

// AsNumber returns the value as a float64, mapping true to 1 and
// false to 0.
func (v Value) AsNumber() float64 {
	if !v.IsBool {
		return v.Num
	}
	if v.Bool {
		return 1
	}
	return 0
}

func number(n float64) Value { return Value{Num: n} }
func boolean(b bool) Value   { return Value{Bool: b, IsBool: true} }

// Evaluator compiles formulas against the restricted grammar.
// It is safe for concurrent use.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a formula evaluator. Macros are cleared so
// constructs like has() and exists() never expand; they surface as
// ordinary calls and fail the allow-list.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(cel.ClearMacros())
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compiled is a parsed and allow-list checked formula, ready for
// repeated evaluation.
type Compiled struct {
	src  string
	root celast.Expr
}

// Source returns the original formula text.
func (c *Compiled) Source() string { return c.src }

// Compile parses the formula and rejects any construct outside the
// restricted grammar.
func (e *Evaluator) Compile(src string) (*Compiled, error) {
	ast, issues := e.env.Parse(src)
	if issues != nil && issues.Err() != nil {
		return nil, errf(src, "parse error: %v", issues.Err())
	}

	root := ast.NativeRep().Expr()
	if err := checkAllowed(src, root); err != nil {
		return nil, err
	}

	return &Compiled{src: src, root: root}, nil
}

// Evaluate is a one-shot compile and eval.
func (e *Evaluator) Evaluate(src string, vars map[string]float64) (Value, error) {
	compiled, err := e.Compile(src)
	if err != nil {
		return Value{}, err
	}
	return compiled.Eval(vars)
}

// Eval evaluates the formula against the given variables. Arithmetic
// and comparisons require numbers, the boolean operators require
// booleans, and division by zero is an error.
func (c *Compiled) Eval(vars map[string]float64) (Value, error) {
	return c.eval(c.root, vars)
}

// allowedFunctions are the plain calls the grammar admits beyond
// operators.
var allowedFunctions = map[string]bool{
	"max": true,
	"min": true,
}

// allowedOperators are the CEL operator functions the grammar admits.
var allowedOperators = map[string]bool{
	operators.Add:           true,
	operators.Subtract:      true,
	operators.Multiply:      true,
	operators.Divide:        true,
	operators.Negate:        true,
	operators.Equals:        true,
	operators.NotEquals:     true,
	operators.Less:          true,
	operators.LessEquals:    true,
	operators.Greater:       true,
	operators.GreaterEquals: true,
	operators.LogicalAnd:    true,
	operators.LogicalOr:     true,
	operators.LogicalNot:    true,
}

func checkAllowed(src string, e celast.Expr) error {
	switch e.Kind() {
	case celast.LiteralKind:
		switch e.AsLiteral().(type) {
		case types.Int, types.Uint, types.Double, types.Bool:
			return nil
		default:
			return errf(src, "literal type %T is not allowed", e.AsLiteral())
		}

	case celast.IdentKind:
		return nil

	case celast.CallKind:
		call := e.AsCall()
		fn := call.FunctionName()
		if call.IsMemberFunction() {
			return errf(src, "method call %s() is not allowed", fn)
		}
		if !allowedOperators[fn] && !allowedFunctions[fn] {
			return errf(src, "function or operator %q is not allowed", fn)
		}
		if allowedFunctions[fn] && len(call.Args()) < 2 {
			return errf(src, "%s needs at least two arguments", fn)
		}
		for _, arg := range call.Args() {
			if err := checkAllowed(src, arg); err != nil {
				return err
			}
		}
		return nil

	case celast.SelectKind:
		return errf(src, "field selection is not allowed")
	case celast.ListKind:
		return errf(src, "list literals are not allowed")
	case celast.MapKind:
		return errf(src, "map literals are not allowed")
	case celast.StructKind:
		return errf(src, "struct literals are not allowed")
	case celast.ComprehensionKind:
		return errf(src, "comprehensions are not allowed")
	default:
		return errf(src, "unsupported syntax")
	}
}

func (c *Compiled) eval(e celast.Expr, vars map[string]float64) (Value, error) {
	switch e.Kind() {
	case celast.LiteralKind:
		switch v := e.AsLiteral().(type) {
		case types.Int:
			return number(float64(v)), nil
		case types.Uint:
			return number(float64(v)), nil
		case types.Double:
			return number(float64(v)), nil
		case types.Bool:
			return boolean(bool(v)), nil
		default:
			return Value{}, errf(c.src, "literal type %T is not allowed", e.AsLiteral())
		}

	case celast.IdentKind:
		name := e.AsIdent()
		n, ok := vars[name]
		if !ok {
			return Value{}, errf(c.src, "undefined variable %q", name)
		}
		return number(n), nil

	case celast.CallKind:
		return c.evalCall(e.AsCall(), vars)

	default:
		return Value{}, errf(c.src, "unsupported syntax")
	}
}

func (c *Compiled) evalCall(call celast.CallExpr, vars map[string]float64) (Value, error) {
	fn := call.FunctionName()
	args := call.Args()

	switch fn {
	case operators.LogicalNot:
		v, err := c.eval(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		if !v.IsBool {
			return Value{}, errf(c.src, "operator ! needs a boolean operand")
		}
		return boolean(!v.Bool), nil

	case operators.LogicalAnd, operators.LogicalOr:
		left, err := c.eval(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		if !left.IsBool {
			return Value{}, errf(c.src, "logical operators need boolean operands")
		}
		// Short-circuit
		if fn == operators.LogicalAnd && !left.Bool {
			return boolean(false), nil
		}
		if fn == operators.LogicalOr && left.Bool {
			return boolean(true), nil
		}
		right, err := c.eval(args[1], vars)
		if err != nil {
			return Value{}, err
		}
		if !right.IsBool {
			return Value{}, errf(c.src, "logical operators need boolean operands")
		}
		return boolean(right.Bool), nil

	case operators.Negate:
		v, err := c.evalNumber(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		return number(-v), nil

	case operators.Add, operators.Subtract, operators.Multiply, operators.Divide:
		left, err := c.evalNumber(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		right, err := c.evalNumber(args[1], vars)
		if err != nil {
			return Value{}, err
		}
		switch fn {
		case operators.Add:
			return number(left + right), nil
		case operators.Subtract:
			return number(left - right), nil
		case operators.Multiply:
			return number(left * right), nil
		default:
			if right == 0 {
				return Value{}, errf(c.src, "division by zero")
			}
			return number(left / right), nil
		}

	case operators.Equals, operators.NotEquals, operators.Less,
		operators.LessEquals, operators.Greater, operators.GreaterEquals:
		left, err := c.evalNumber(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		right, err := c.evalNumber(args[1], vars)
		if err != nil {
			return Value{}, err
		}
		switch fn {
		case operators.Equals:
			return boolean(left == right), nil
		case operators.NotEquals:
			return boolean(left != right), nil
		case operators.Less:
			return boolean(left < right), nil
		case operators.LessEquals:
			return boolean(left <= right), nil
		case operators.Greater:
			return boolean(left > right), nil
		default:
			return boolean(left >= right), nil
		}

	case "max", "min":
		best, err := c.evalNumber(args[0], vars)
		if err != nil {
			return Value{}, err
		}
		for _, arg := range args[1:] {
			n, err := c.evalNumber(arg, vars)
			if err != nil {
				return Value{}, err
			}
			if (fn == "max" && n > best) || (fn == "min" && n < best) {
				best = n
			}
		}
		return number(best), nil

	default:
		return Value{}, errf(c.src, "function or operator %q is not allowed", fn)
	}
}

// evalNumber evaluates a subexpression that must yield a number.
func (c *Compiled) evalNumber(e celast.Expr, vars map[string]float64) (float64, error) {
	v, err := c.eval(e, vars)
	if err != nil {
		return 0, err
	}
	if v.IsBool {
		return 0, errf(c.src, "expected a number, got a boolean")
	}
	return v.Num, nil
}
