package thrift

import "strings"

// Operator is the closed set of condition operators.
type Operator string

// Comparison operators.
const (
	OpIs                   Operator = "is"
	OpGreaterThan          Operator = "greater_than"
	OpGreaterThanOrEqualTo Operator = "greater_than_or_equal_to"
	OpLessThan             Operator = "less_than"
	OpLessThanOrEqualTo    Operator = "less_than_or_equal_to"
	OpIn                   Operator = "in"
)

// Composite operators.
const (
	OpAnd Operator = "and"
	OpOr  Operator = "or"
)

// ParseOperator validates an operator name.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.TrimSpace(s))
	if !op.IsComparison() && !op.IsComposite() {
		return "", newOperatorError(s)
	}
	return op, nil
}

// IsComparison reports whether op is a leaf operator.
func (op Operator) IsComparison() bool {
	switch op {
	case OpIs, OpGreaterThan, OpGreaterThanOrEqualTo, OpLessThan, OpLessThanOrEqualTo, OpIn:
		return true
	}
	return false
}

// IsComposite reports whether op joins child conditions.
func (op Operator) IsComposite() bool {
	return op == OpAnd || op == OpOr
}

// sqlOperator renders a leaf operator. Every comparison operator has a case;
// anything else is an error rather than an empty string.
func sqlOperator(op Operator) (string, error) {
	switch op {
	case OpIs:
		return "=", nil
	case OpGreaterThan:
		return ">", nil
	case OpGreaterThanOrEqualTo:
		return ">=", nil
	case OpLessThan:
		return "<", nil
	case OpLessThanOrEqualTo:
		return "<=", nil
	case OpIn:
		return "in", nil
	default:
		return "", newOperatorError(string(op))
	}
}

// sqlKeyword renders a composite operator.
func sqlKeyword(op Operator) (string, error) {
	switch op {
	case OpAnd:
		return "and", nil
	case OpOr:
		return "or", nil
	default:
		return "", newOperatorError(string(op))
	}
}
