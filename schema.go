package thrift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/sentinel"
)

// TableSchema describes one allowlisted table: its columns with SQL types,
// and the aggregate expressions that may be referenced verbatim.
//
// Constraints maps a column to a comma-separated list of primary_key,
// not_null and unique. Columns without an entry are nullable.
type TableSchema struct {
	Name        string            `yaml:"-"`
	Columns     map[string]string `yaml:"columns"`
	Constraints map[string]string `yaml:"constraints"`
	Expressions []string          `yaml:"expressions"`
}

// SchemaFromModel derives a TableSchema from a tagged struct.
// Fields without a db tag (or tagged "-") are not allowlisted.
//
// Example:
//
//	type Account struct {
//	    AccountID string `db:"account_id" type:"uuid"`
//	}
//	schema := thrift.SchemaFromModel[Account]("accounts", "count(account_id)")
func SchemaFromModel[T any](table string, expressions ...string) TableSchema {
	registerTags()
	metadata := sentinel.Inspect[T]()

	columns := make(map[string]string, len(metadata.Fields))
	constraints := make(map[string]string)
	for _, field := range metadata.Fields {
		dbTag, ok := field.Tags["db"]
		if !ok || dbTag == "" || dbTag == "-" {
			continue
		}
		sqlType := field.Tags["type"]
		if sqlType == "" {
			sqlType = inferPostgresType(field.Type)
		}
		columns[dbTag] = sqlType
		if c := field.Tags["constraints"]; c != "" {
			constraints[dbTag] = c
		}
	}

	return TableSchema{
		Name:        table,
		Columns:     columns,
		Constraints: constraints,
		Expressions: expressions,
	}
}

// registerTags registers the struct tags read by SchemaFromModel.
func registerTags() {
	sentinel.Tag("db")
	sentinel.Tag("type")
	sentinel.Tag("constraints")
}

// buildDBML turns a TableSchema into a single-table DBML project so it can be
// validated and loaded by astql.
func buildDBML(schema TableSchema) (*dbml.Project, error) {
	if schema.Name == "" {
		return nil, fmt.Errorf("table schema has no name")
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns", schema.Name)
	}
	for col := range schema.Constraints {
		if _, ok := schema.Columns[col]; !ok {
			return nil, fmt.Errorf("table %q: constraints on undeclared column %q", schema.Name, col)
		}
	}

	project := dbml.NewProject(schema.Name).
		WithDatabaseType("PostgreSQL")

	table := dbml.NewTable(schema.Name).
		WithSchema("public")

	// Sorted so the generated project is identical across runs.
	names := make([]string, 0, len(schema.Columns))
	for name := range schema.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sqlType := schema.Columns[name]
		if sqlType == "" {
			sqlType = "text"
		}
		col := dbml.NewColumn(name, sqlType)

		notNull, unique, primaryKey := parseConstraints(schema.Constraints[name])
		if primaryKey {
			col.WithPrimaryKey()
		}
		if unique {
			col.WithUnique()
		}
		// DBML columns are NOT NULL unless marked.
		if !notNull && !primaryKey {
			col.WithNull()
		}
		table.AddColumn(col)
	}

	project.AddTable(table)

	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("table %q: generated DBML is invalid: %w", schema.Name, err)
	}

	return project, nil
}

// parseConstraints splits a constraints value such as "not_null,unique".
// Unknown entries are ignored.
func parseConstraints(value string) (notNull, unique, primaryKey bool) {
	for _, c := range strings.Split(value, ",") {
		switch strings.TrimSpace(c) {
		case "not_null":
			notNull = true
		case "unique":
			unique = true
		case "primary_key":
			primaryKey = true
		}
	}
	return notNull, unique, primaryKey
}

const (
	pgTypeSmallInt = "SMALLINT"
)

// inferPostgresType maps Go types to default Postgres types.
func inferPostgresType(goType string) string {
	goType = strings.TrimPrefix(goType, "*")

	if strings.HasPrefix(goType, "[]") {
		elementType := strings.TrimPrefix(goType, "[]")
		if elementType == "byte" || elementType == "uint8" {
			return "BYTEA"
		}
		return inferPostgresType(elementType) + "[]"
	}

	switch goType {
	case "string":
		return "TEXT"
	case "int", "int32", "uint", "uint32":
		return "INTEGER"
	case "int64", "uint64":
		return "BIGINT"
	case "int16", "int8", "uint16", "uint8":
		return pgTypeSmallInt
	case "float32":
		return "REAL"
	case "float64":
		return "DOUBLE PRECISION"
	case "bool":
		return "BOOLEAN"
	case "time.Time":
		return "TIMESTAMPTZ"
	default:
		return "JSONB"
	}
}

// isTemporalType reports whether a column of sqlType holds a point in time.
func isTemporalType(sqlType string) bool {
	t := strings.ToLower(sqlType)
	return strings.HasPrefix(t, "timestamp") || t == "date"
}
