package thrift

import (
	"strings"
)

// Assemble compiles a full Specification into one parameterized query.
func Assemble(allowlist *Allowlist, spec Specification) (Query, error) {
	sql, args, err := assemble(allowlist, spec, false)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// AssembleInline compiles a Specification into a single string with literals
// quoted inline. It reproduces the legacy query text byte for byte, e.g.
//
//	select account_id from transactions where (transaction_type='USER_SAVING_EVENT' and settlement_status='SETTLED') group by account_id
func AssembleInline(allowlist *Allowlist, spec Specification) (string, error) {
	sql, _, err := assemble(allowlist, spec, true)
	return sql, err
}

func assemble(allowlist *Allowlist, spec Specification, inline bool) (string, []any, error) {
	if allowlist == nil {
		return "", nil, ErrNilAllowlist
	}
	table, err := allowlist.RequireTable(spec.Table)
	if err != nil {
		return "", nil, err
	}

	conditions, err := RewriteDateEquality(table, spec.Conditions)
	if err != nil {
		return "", nil, err
	}

	var sample float64
	if spec.Sample != nil {
		if sample, err = validateRowPercentage(spec.Sample.Random); err != nil {
			return "", nil, err
		}
	}

	plan := selectPlan{
		table:          table,
		projection:     projection(table, spec),
		conditions:     conditions,
		groupBy:        grouping(table, spec),
		postConditions: spec.PostConditions,
	}

	r := newRenderer(table, inline)
	sql, err := plan.render(r)
	if err != nil {
		return "", nil, err
	}

	if spec.Sample != nil {
		population, err := plan.render(r)
		if err != nil {
			return "", nil, err
		}
		sql += sampleClause(sample, population)
	}

	return sql, r.args, nil
}

// projection returns the select list: allowed columns followed by count()
// of declared count columns. If every column is filtered out, the defaults are
// used so the statement stays well formed.
func projection(table *TableAllowlist, spec Specification) []string {
	columns := spec.Columns
	if columns == nil {
		columns = DefaultColumns
	}
	out := table.FilterColumns(columns)

	// Only declared columns are counted, never expressions.
	for _, col := range spec.ColumnsToCount {
		if _, err := table.RequireField(col); err == nil {
			out = append(out, "count("+col+")")
		}
	}

	if len(out) == 0 {
		out = table.FilterColumns(DefaultColumns)
	}
	return out
}

func grouping(table *TableAllowlist, spec Specification) []string {
	if spec.GroupBy == nil {
		return table.FilterColumns(DefaultGroupBy)
	}
	return table.FilterColumns(spec.GroupBy)
}

// selectPlan is a validated, ready-to-render select statement.
type selectPlan struct {
	table          *TableAllowlist
	projection     []string
	conditions     []Condition
	groupBy        []string
	postConditions []Condition
}

// render writes the statement, binding values through r. Rendering the same
// plan twice with one renderer continues placeholder numbering.
func (p selectPlan) render(r *renderer) (string, error) {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(p.projection, ", "))
	b.WriteString(" from ")
	b.WriteString(p.table.Name())

	where, err := r.conditions(p.conditions)
	if err != nil {
		return "", err
	}
	if where != "" {
		b.WriteString(" where ")
		b.WriteString(where)
	}

	if len(p.groupBy) > 0 {
		b.WriteString(" group by ")
		b.WriteString(strings.Join(p.groupBy, ", "))
	}

	having, err := r.conditions(p.postConditions)
	if err != nil {
		return "", err
	}
	if having != "" {
		b.WriteString(" having ")
		b.WriteString(having)
	}

	return b.String(), nil
}
