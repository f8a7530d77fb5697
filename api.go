// Package thrift compiles audience specifications into parameterized
// PostgreSQL queries.
//
// An audience is a set of accounts selected by a declarative, JSON-shaped
// specification: a boolean tree of column comparisons, optional grouping with
// post-aggregation filters, and an optional random sample. Every table and
// column a specification references is checked against an allowlist built from
// struct tags (via Sentinel) and validated through ASTQL before any SQL is
// produced. Literals are never interpolated; they are bound as $n parameters.
//
// # Quick Start
//
// Build a compiler over the default ledger schema:
//
//	allowlist, err := thrift.DefaultAllowlist()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := thrift.New(allowlist)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Compile a specification:
//
//	q, err := t.Assemble(thrift.Specification{
//	    Table: "transactions",
//	    Conditions: []thrift.Condition{
//	        thrift.And(
//	            thrift.C("transaction_type", thrift.OpIs, "USER_SAVING_EVENT"),
//	            thrift.C("settlement_status", thrift.OpIs, "SETTLED"),
//	        ),
//	    },
//	})
//	// q.SQL:  select account_id from transactions where (transaction_type=$1 and settlement_status=$2) group by account_id
//	// q.Args: ["USER_SAVING_EVENT" "SETTLED"]
//
// Translate a semantic criterion:
//
//	q, err := t.AssembleAggregate("balance_sum", thrift.AggregateCondition{
//	    Op: thrift.OpGreaterThan, Value: 20, Unit: units.WholeCurrency,
//	}, "")
//
// Compile a selection instruction:
//
//	q, err := t.CompileInstruction(`whole_universe from #{{"specific_accounts":["acct-1","acct-2"]}}`)
//	// q.SQL: SELECT account_id FROM accounts WHERE account_id IN ($1,$2)
//
// Execute against a database:
//
//	exec, err := thrift.Connect(ctx, dsn)
//	ids, err := exec.Select(ctx, q, "accounts", thrift.MethodWholeUniverse)
//
// # Features
//
//   - Condition trees with recursive and/or composition
//   - Table and column allowlisting, hot-swappable through a Guard
//   - Aggregate translators for save counts, balances and friend counts
//   - Monetary thresholds normalized to hundredth-cent before comparison
//   - Count-bounded random sampling
//   - Integration with capitan for structured logging
package thrift

import (
	"context"
	"fmt"
)

// DefaultUniverseTable is the table selection instructions read from.
const DefaultUniverseTable = AccountTable

// Thrift compiles audience specifications against the allowlist held by its
// Guard. It is safe for concurrent use; Reload swaps the allowlist without
// affecting compilations already in progress.
type Thrift struct {
	guard         *Guard
	registry      *Registry
	universeTable string
}

// Option configures a Thrift.
type Option func(*Thrift)

// WithUniverseTable sets the table selection instructions are compiled against.
func WithUniverseTable(table string) Option {
	return func(t *Thrift) {
		t.universeTable = table
	}
}

// WithRegistry replaces the aggregate translator registry.
func WithRegistry(r *Registry) Option {
	return func(t *Thrift) {
		t.registry = r
	}
}

// New creates a compiler over allowlist.
func New(allowlist *Allowlist, opts ...Option) (*Thrift, error) {
	guard, err := NewGuard(allowlist)
	if err != nil {
		return nil, err
	}
	t := &Thrift{
		guard:         guard,
		registry:      NewRegistry(),
		universeTable: DefaultUniverseTable,
	}
	for _, opt := range opts {
		opt(t)
	}
	if !allowlist.IsTableAllowed(t.universeTable) {
		return nil, fmt.Errorf("universe %w", newTableError(t.universeTable))
	}
	return t, nil
}

// Allowlist returns the allowlist currently in force.
func (t *Thrift) Allowlist() *Allowlist {
	return t.guard.Load()
}

// Registry returns the aggregate translator registry.
func (t *Thrift) Registry() *Registry {
	return t.registry
}

// Reload installs a new allowlist.
func (t *Thrift) Reload(ctx context.Context, next *Allowlist) error {
	if next != nil && !next.IsTableAllowed(t.universeTable) {
		return fmt.Errorf("universe %w", newTableError(t.universeTable))
	}
	_, err := t.guard.Swap(ctx, next)
	return err
}

// Compile renders conditions for table with bind placeholders. Equality on a
// date column is widened to the whole day first.
func (t *Thrift) Compile(table string, conditions []Condition) (Fragment, error) {
	ta, conds, err := t.prepare(table, conditions)
	if err != nil {
		return Fragment{}, err
	}
	return CompileConditions(ta, conds)
}

// CompileInline is Compile with literals quoted into the text.
func (t *Thrift) CompileInline(table string, conditions []Condition) (string, error) {
	ta, conds, err := t.prepare(table, conditions)
	if err != nil {
		return "", err
	}
	return CompileConditionsInline(ta, conds)
}

func (t *Thrift) prepare(table string, conditions []Condition) (*TableAllowlist, []Condition, error) {
	ta, err := t.guard.Load().RequireTable(table)
	if err != nil {
		return nil, nil, err
	}
	conds, err := RewriteDateEquality(ta, conditions)
	if err != nil {
		return nil, nil, err
	}
	return ta, conds, nil
}

// Assemble compiles spec into a parameterized query.
func (t *Thrift) Assemble(spec Specification) (Query, error) {
	return Assemble(t.guard.Load(), spec)
}

// AssembleInline compiles spec into the legacy inline form.
func (t *Thrift) AssembleInline(spec Specification) (string, error) {
	return AssembleInline(t.guard.Load(), spec)
}

// Translate expands a named aggregate condition. Unknown names yield a nil
// fragment and a nil error.
func (t *Thrift) Translate(name string, params AggregateCondition, accountID string) (*AggregateFragment, error) {
	return t.registry.Translate(name, params, accountID)
}

// AssembleAggregate translates a named aggregate condition and compiles the
// result. Unlike Translate, an unknown name is an error here, since there is
// no query to return.
func (t *Thrift) AssembleAggregate(name string, params AggregateCondition, accountID string) (Query, error) {
	translate, err := t.registry.Lookup(name)
	if err != nil {
		return Query{}, err
	}
	frag, err := translate(params, Scope{AccountID: accountID, Now: t.registry.now()})
	if err != nil {
		return Query{}, err
	}
	return t.Assemble(frag.Specification())
}

// CompileInstruction compiles a selection instruction against the universe
// table.
func (t *Thrift) CompileInstruction(text string) (Query, error) {
	return CompileInstruction(t.guard.Load(), t.universeTable, text)
}
