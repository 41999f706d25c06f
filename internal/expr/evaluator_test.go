package expr

import (
	"errors"
	"testing"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	return e
}

func TestEvaluateArithmetic(t *testing.T) {
	e := newTestEvaluator(t)

	vars := map[string]float64{
		"atm_withdrawal_count": 5,
		"free_atm":             3,
		"digital_ratio":        0.72,
		"txn_count":            40,
	}

	tests := []struct {
		name    string
		formula string
		want    float64
	}{
		{"precedence", "2 + 3 * 4", 14},
		{"division", "10 / 4", 2.5},
		{"unary minus", "-3 + 5", 2},
		{"parens", "(2 + 3) * 4", 20},
		{"variables", "atm_withdrawal_count - free_atm", 2},
		{"max clamps negative", "max(free_atm - atm_withdrawal_count, 0)", 0},
		{"max picks larger", "max(atm_withdrawal_count - free_atm, 0)", 2},
		{"min", "min(txn_count, 10)", 10},
		{"three arg max", "max(1, 5, 3)", 5},
		{"ratio math", "digital_ratio * 100", 72},
		{"float literals", "1.5 + 2.25", 3.75},
		{"mixed int and float", "3 * 1.5", 4.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.formula, vars)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tt.formula, err)
			}
			if got.IsBool {
				t.Fatalf("Evaluate(%q) returned a boolean, expected a number", tt.formula)
			}
			if got.Num != tt.want {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.formula, got.Num, tt.want)
			}
		})
	}
}

func TestEvaluateBooleans(t *testing.T) {
	e := newTestEvaluator(t)

	vars := map[string]float64{"a": 5, "b": 2}

	tests := []struct {
		name    string
		formula string
		want    bool
	}{
		{"greater", "a > b", true},
		{"less", "a < b", false},
		{"equals", "a == 5", true},
		{"not equals", "a != 5", false},
		{"gte boundary", "a >= 5", true},
		{"lte boundary", "b <= 2", true},
		{"and", "a > 0 && b > 0", true},
		{"or", "a < 0 || b > 0", true},
		{"not", "!(a > b)", false},
		{"bool literal", "true && a > b", true},
		{"short circuit and", "a < 0 && 1 / 0 > 1", false},
		{"short circuit or", "a > 0 || 1 / 0 > 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.formula, vars)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tt.formula, err)
			}
			if !got.IsBool {
				t.Fatalf("Evaluate(%q) returned a number, expected a boolean", tt.formula)
			}
			if got.Bool != tt.want {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.formula, got.Bool, tt.want)
			}
		})
	}
}

func TestCompileRejectsDisallowedSyntax(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name    string
		formula string
	}{
		{"string literal", `"hello" + "world"`},
		{"field selection", "tx.amount * 2"},
		{"list literal", "[1, 2, 3]"},
		{"map literal", "{'a': 1}"},
		{"ternary", "a > 0 ? 1 : 2"},
		{"modulo", "a % 2"},
		{"in operator", "a in [1, 2]"},
		{"unknown function", "size(a)"},
		{"method call", "a.exists(x, x > 0)"},
		{"index", "a[0]"},
		{"single arg max", "max(a)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(tt.formula)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, expected an error", tt.formula)
			}
			var exprErr *ExpressionError
			if !errors.As(err, &exprErr) {
				t.Errorf("Compile(%q) error is %T, expected *ExpressionError", tt.formula, err)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	e := newTestEvaluator(t)

	vars := map[string]float64{"a": 5, "zero": 0}

	tests := []struct {
		name    string
		formula string
	}{
		{"undefined variable", "a + missing"},
		{"division by zero literal", "1 / 0"},
		{"division by zero variable", "a / zero"},
		{"number plus bool", "1 + true"},
		{"bool in comparison", "(a > 1) > 0"},
		{"number in logical and", "a && true"},
		{"not on number", "!a"},
		{"bool in max", "max(a > 1, 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := e.Compile(tt.formula)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.formula, err)
			}
			_, err = compiled.Eval(vars)
			if err == nil {
				t.Fatalf("Eval(%q) succeeded, expected an error", tt.formula)
			}
			var exprErr *ExpressionError
			if !errors.As(err, &exprErr) {
				t.Errorf("Eval(%q) error is %T, expected *ExpressionError", tt.formula, err)
			}
		})
	}
}

func TestCompiledReuse(t *testing.T) {
	e := newTestEvaluator(t)

	compiled, err := e.Compile("max(count - free, 0) * fee")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	first, err := compiled.Eval(map[string]float64{"count": 5, "free": 3, "fee": 10})
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if first.Num != 20 {
		t.Errorf("first Eval() = %v, expected 20", first.Num)
	}

	second, err := compiled.Eval(map[string]float64{"count": 2, "free": 3, "fee": 10})
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if second.Num != 0 {
		t.Errorf("second Eval() = %v, expected 0", second.Num)
	}
}

func TestValueAsNumber(t *testing.T) {
	if got := boolean(true).AsNumber(); got != 1 {
		t.Errorf("true AsNumber() = %v, expected 1", got)
	}
	if got := boolean(false).AsNumber(); got != 0 {
		t.Errorf("false AsNumber() = %v, expected 0", got)
	}
	if got := number(3.5).AsNumber(); got != 3.5 {
		t.Errorf("number AsNumber() = %v, expected 3.5", got)
	}
}
