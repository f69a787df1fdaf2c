// Package calc evaluates calculator-style amount expressions such as
// "12.50+3*2". Input is restricted to numeric literals, the four arithmetic
// operators, and parentheses; nothing user-influenced is ever evaluated as
// code.
package calc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/shopspring/decimal"
)

var exprPattern = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)

var lang = gval.Arithmetic()

// Evaluate parses and evaluates an arithmetic expression, returning the
// result as a decimal. Only digits, "+", "-", "*", "/", parentheses, "." and
// whitespace are accepted.
func Evaluate(expr string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty expression")
	}
	if !exprPattern.MatchString(trimmed) {
		return decimal.Zero, fmt.Errorf("expression contains unsupported characters")
	}

	v, err := lang.Evaluate(trimmed, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid expression: %w", err)
	}

	f, ok := v.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("expression did not produce a number")
	}
	return decimal.NewFromFloat(f), nil
}
