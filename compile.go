package thrift

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fragment is a rendered predicate: SQL text with $n placeholders and the
// values bound to them, in placeholder order.
type Fragment struct {
	SQL  string
	Args []any
}

// IsEmpty reports whether the fragment renders no predicate.
func (f Fragment) IsEmpty() bool {
	return f.SQL == ""
}

// renderer turns condition trees into SQL text. In inline mode literals are
// quoted into the text; otherwise they are appended to args and replaced by
// $n placeholders, numbered across everything the renderer has produced.
type renderer struct {
	table  *TableAllowlist
	inline bool
	args   []any
}

func newRenderer(table *TableAllowlist, inline bool) *renderer {
	return &renderer{table: table, inline: inline}
}

// CompileConditions renders conditions against a table's allowlist using
// bind placeholders. Multiple top-level conditions are joined by adjacency;
// wrap them in one And to get a single predicate.
func CompileConditions(table *TableAllowlist, conditions []Condition) (Fragment, error) {
	r := newRenderer(table, false)
	sql, err := r.conditions(conditions)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{SQL: sql, Args: r.args}, nil
}

// CompileConditionsInline renders conditions with literals escaped and quoted
// into the text. It exists for callers that compare against legacy query
// strings; prefer CompileConditions.
func CompileConditionsInline(table *TableAllowlist, conditions []Condition) (string, error) {
	return newRenderer(table, true).conditions(conditions)
}

// conditions validates every node, then renders. Nothing is rendered for a
// tree that references a disallowed property at any depth.
func (r *renderer) conditions(conditions []Condition) (string, error) {
	if len(conditions) == 0 {
		return "", nil
	}
	for _, c := range conditions {
		if err := r.validate(c); err != nil {
			return "", err
		}
	}

	parts := make([]string, 0, len(conditions))
	for _, c := range conditions {
		part, err := r.condition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " "), nil
}

func (r *renderer) validate(c Condition) error {
	if c.IsComposite() {
		if len(c.Children) == 0 {
			return ErrEmptyComposite
		}
		for _, child := range c.Children {
			if err := r.validate(child); err != nil {
				return err
			}
		}
		return nil
	}

	if !c.Operator.IsComparison() {
		return newOperatorError(string(c.Operator))
	}
	if _, err := r.table.RequireColumn(c.Property); err != nil {
		return err
	}
	_, err := leafValues(c)
	return err
}

func (r *renderer) condition(c Condition) (string, error) {
	if c.IsComposite() {
		return r.composite(c)
	}
	return r.comparison(c)
}

func (r *renderer) composite(c Condition) (string, error) {
	keyword, err := sqlKeyword(c.Operator)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(c.Children))
	for _, child := range c.Children {
		part, err := r.condition(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	return "(" + strings.Join(parts, " "+keyword+" ") + ")", nil
}

func (r *renderer) comparison(c Condition) (string, error) {
	op, err := sqlOperator(c.Operator)
	if err != nil {
		return "", err
	}
	values, err := leafValues(c)
	if err != nil {
		return "", err
	}

	if c.Operator == OpIn {
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = r.value(v)
		}
		return fmt.Sprintf("%s %s (%s)", c.Property, op, strings.Join(rendered, ", ")), nil
	}

	return c.Property + op + r.value(values[0]), nil
}

// value renders one literal. Strings are quoted, int64 values are not.
func (r *renderer) value(v any) string {
	if !r.inline {
		r.args = append(r.args, v)
		return "$" + strconv.Itoa(len(r.args))
	}
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return quoteLiteral(x)
	default:
		return quoteLiteral(fmt.Sprint(x))
	}
}

// quoteLiteral single-quotes s, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// leafValues normalizes a leaf's value into the literals it renders: int64
// for int-typed leaves, string otherwise. Non-in operators yield exactly one.
func leafValues(c Condition) ([]any, error) {
	switch c.ValueType {
	case "", ValueString, ValueInt:
	default:
		return nil, newValueError(c.Property, fmt.Sprintf("unknown value type %q", c.ValueType))
	}
	if c.Value == nil {
		return nil, newValueError(c.Property, "missing value")
	}

	var raw []any
	switch v := c.Value.(type) {
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case []any:
		raw = v
	case []int64:
		for _, i := range v {
			raw = append(raw, i)
		}
	case string:
		if c.Operator == OpIn {
			// Legacy convenience: "a, b, c".
			for _, s := range strings.Split(v, ", ") {
				raw = append(raw, s)
			}
		} else {
			raw = []any{v}
		}
	default:
		raw = []any{v}
	}

	if c.Operator != OpIn && len(raw) != 1 {
		return nil, newValueError(c.Property, fmt.Sprintf("operator %q takes a single value", c.Operator))
	}
	if len(raw) == 0 {
		return nil, newValueError(c.Property, "empty list")
	}

	out := make([]any, len(raw))
	for i, v := range raw {
		if c.ValueType == ValueInt {
			n, err := toInt64(v)
			if err != nil {
				return nil, newValueError(c.Property, err.Error())
			}
			out[i] = n
			continue
		}
		s, err := toText(v)
		if err != nil {
			return nil, newValueError(c.Property, err.Error())
		}
		out[i] = s
	}
	return out, nil
}

// maxInt64Float is 2^63, the first float64 above the int64 range.
const maxInt64Float = 1 << 63

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		if x < math.MinInt64 || x >= maxInt64Float {
			return 0, fmt.Errorf("%v overflows int64", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("%T cannot be rendered as text", v)
	}
}
