package thrift

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/zoobzio/astql"
	"github.com/zoobzio/capitan"
)

// Allowlist is the set of tables and columns a compiled specification may
// reference. Property names are interpolated into rendered SQL, so this is
// the only injection defense for identifiers: every leaf, projection and
// grouping entry goes through it.
//
// An Allowlist is immutable once built and safe for concurrent use.
type Allowlist struct {
	tables map[string]*TableAllowlist
}

// TableAllowlist is the column allowlist for one table. Columns are validated
// through an astql instance built from the table's DBML schema; aggregate
// expressions are matched verbatim.
type TableAllowlist struct {
	name        string
	instance    *astql.ASTQL
	types       map[string]string
	expressions map[string]struct{}
}

// NewAllowlist builds an allowlist from table schemas.
func NewAllowlist(schemas ...TableSchema) (*Allowlist, error) {
	a := &Allowlist{tables: make(map[string]*TableAllowlist, len(schemas))}

	for _, schema := range schemas {
		if _, dup := a.tables[schema.Name]; dup {
			return nil, fmt.Errorf("thrift: table %q declared twice", schema.Name)
		}

		project, err := buildDBML(schema)
		if err != nil {
			return nil, fmt.Errorf("thrift: %w", err)
		}

		instance, err := astql.NewFromDBML(project)
		if err != nil {
			return nil, fmt.Errorf("thrift: failed to create ASTQL instance for %q: %w", schema.Name, err)
		}

		types := make(map[string]string, len(schema.Columns))
		for col, sqlType := range schema.Columns {
			types[col] = sqlType
		}

		exprs := make(map[string]struct{}, len(schema.Expressions))
		for _, e := range schema.Expressions {
			exprs[e] = struct{}{}
		}

		a.tables[schema.Name] = &TableAllowlist{
			name:        schema.Name,
			instance:    instance,
			types:       types,
			expressions: exprs,
		}
	}

	return a, nil
}

// IsTableAllowed reports whether name is an allowlisted table.
func (a *Allowlist) IsTableAllowed(name string) bool {
	_, ok := a.tables[name]
	return ok
}

// RequireTable returns the column allowlist for name, or ErrTableNotSupported.
func (a *Allowlist) RequireTable(name string) (*TableAllowlist, error) {
	t, ok := a.tables[name]
	if !ok {
		return nil, newTableError(name)
	}
	if _, err := t.instance.TryT(name); err != nil {
		return nil, fmt.Errorf("%w: %v", newTableError(name), err)
	}
	return t, nil
}

// Tables returns the allowlisted table names in sorted order.
func (a *Allowlist) Tables() []string {
	names := make([]string, 0, len(a.tables))
	for name := range a.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the table name.
func (t *TableAllowlist) Name() string {
	return t.name
}

// IsColumnAllowed reports whether name is an allowlisted column or expression.
func (t *TableAllowlist) IsColumnAllowed(name string) bool {
	if _, ok := t.expressions[name]; ok {
		return true
	}
	if _, ok := t.types[name]; !ok {
		return false
	}
	_, err := t.instance.TryF(name)
	return err == nil
}

// RequireColumn returns name if it is allowed, or ErrPropertyNotSupported.
func (t *TableAllowlist) RequireColumn(name string) (string, error) {
	if !t.IsColumnAllowed(name) {
		return "", newPropertyError(t.name, name)
	}
	return name, nil
}

// RequireField is RequireColumn restricted to declared columns; allowlisted
// expressions are rejected.
func (t *TableAllowlist) RequireField(name string) (string, error) {
	if _, ok := t.types[name]; !ok {
		return "", newPropertyError(t.name, name)
	}
	if _, err := t.instance.TryF(name); err != nil {
		return "", newPropertyError(t.name, name)
	}
	return name, nil
}

// FilterColumns returns the allowed entries of names in their original order.
// Disallowed entries are dropped without error; this lenient projection is
// deliberate and differs from the hard failure on condition leaves.
func (t *TableAllowlist) FilterColumns(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if t.IsColumnAllowed(name) {
			out = append(out, name)
		}
	}
	return out
}

// ColumnType returns the declared SQL type of a column.
func (t *TableAllowlist) ColumnType(name string) (string, bool) {
	sqlType, ok := t.types[name]
	return sqlType, ok
}

// IsDateColumn reports whether name is a timestamp or date column.
func (t *TableAllowlist) IsDateColumn(name string) bool {
	sqlType, ok := t.types[name]
	return ok && isTemporalType(sqlType)
}

// Guard holds the active allowlist. Reloads replace the whole structure
// atomically; compilations that already loaded the previous allowlist keep
// using it until they finish.
type Guard struct {
	current atomic.Pointer[Allowlist]
}

// NewGuard returns a Guard serving a.
func NewGuard(a *Allowlist) (*Guard, error) {
	if a == nil {
		return nil, ErrNilAllowlist
	}
	g := &Guard{}
	g.current.Store(a)
	return g, nil
}

// Load returns the allowlist currently in force.
func (g *Guard) Load() *Allowlist {
	return g.current.Load()
}

// Swap installs next and returns the allowlist it replaced.
func (g *Guard) Swap(ctx context.Context, next *Allowlist) (*Allowlist, error) {
	if next == nil {
		return nil, ErrNilAllowlist
	}
	prev := g.current.Swap(next)
	capitan.Info(ctx, AllowlistSwapped,
		TableCountKey.Field(len(next.tables)),
	)
	return prev, nil
}
