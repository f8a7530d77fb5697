package thrift

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/zoobzio/thrift/internal/instruction"
)

// Selection methods.
const (
	MethodWholeUniverse = "whole_universe"
	MethodRandomSample  = "random_sample"
	MethodMatchOther    = "match_other"
)

var selectionMethods = map[string]bool{
	MethodWholeUniverse: true,
	MethodRandomSample:  true,
	MethodMatchOther:    true,
}

// Instruction is a parsed selection instruction.
type Instruction struct {
	Method string
	// Param is the raw method parameter, empty when none was given.
	Param    string
	Universe []UniversePair
}

// ParseInstruction parses text such as
//
//	random_sample #{0.33} from #{{"responsibleClientId":"client-7"}}
//
// The method must be known and the universe must be a non-empty JSON object.
func ParseInstruction(text string) (Instruction, error) {
	parsed, err := instruction.Parse(text)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %w", ErrMalformedUniverseDefinition, err)
	}
	if !selectionMethods[parsed.Method] {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnrecognizedSelectionMethod, parsed.Method)
	}

	universe, err := DecodeUniverse(parsed.Universe)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Method:   parsed.Method,
		Param:    parsed.Param,
		Universe: universe,
	}, nil
}

// CompileInstruction parses text and compiles it against table.
func CompileInstruction(allowlist *Allowlist, table, text string) (Query, error) {
	inst, err := ParseInstruction(text)
	if err != nil {
		return Query{}, err
	}
	return CompileSelection(allowlist, table, inst)
}

// CompileSelection compiles a parsed instruction into
//
//	SELECT account_id FROM <table> WHERE <predicates joined by AND>
//
// with one predicate per universe key, bound in key order.
func CompileSelection(allowlist *Allowlist, table string, inst Instruction) (Query, error) {
	if allowlist == nil {
		return Query{}, ErrNilAllowlist
	}
	t, err := allowlist.RequireTable(table)
	if err != nil {
		return Query{}, err
	}

	population, err := universePredicates(t, inst.Universe)
	if err != nil {
		return Query{}, err
	}

	builder := where(sq.Select("account_id").From(t.Name()), population)

	switch inst.Method {
	case MethodWholeUniverse:
	case MethodRandomSample:
		p, err := ParseRowPercentage(inst.Param)
		if err != nil {
			return Query{}, err
		}
		countSQL, countArgs, err := where(sq.Select(sampleLimitExpr(p)).From(t.Name()), population).ToSql()
		if err != nil {
			return Query{}, err
		}
		builder = builder.OrderBy("random()").Suffix("LIMIT ("+countSQL+")", countArgs...)
	case MethodMatchOther:
		return Query{}, fmt.Errorf("%w: %s", ErrNotYetImplemented, inst.Method)
	default:
		return Query{}, fmt.Errorf("%w: %q", ErrUnrecognizedSelectionMethod, inst.Method)
	}

	sql, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// where adds each predicate as its own WHERE part; squirrel joins them with
// AND and leaves single predicates unparenthesized.
func where(b sq.SelectBuilder, preds []sq.Sqlizer) sq.SelectBuilder {
	for _, pred := range preds {
		b = b.Where(pred)
	}
	return b
}

// universePredicates builds one equality (or IN) per pair.
func universePredicates(t *TableAllowlist, pairs []UniversePair) ([]sq.Sqlizer, error) {
	if len(pairs) == 0 {
		return nil, newUniverseError("object has no keys")
	}
	preds := make([]sq.Sqlizer, 0, len(pairs))
	for _, pair := range pairs {
		pred, err := universePredicate(t, pair)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func universePredicate(t *TableAllowlist, pair UniversePair) (sq.Sqlizer, error) {
	col, err := t.RequireField(universeColumn(pair.Key))
	if err != nil {
		return nil, err
	}

	value := pair.Value
	if _, reserved := reservedColumns[camelToSnake(pair.Key)]; reserved {
		if value, err = identifierList(pair.Key, value); err != nil {
			return nil, err
		}
	}
	if list, ok := value.([]any); ok && len(list) == 0 {
		return nil, newValueError(pair.Key, "empty list")
	}
	return sq.Eq{col: value}, nil
}

// identifierList coerces a reserved key's value to a list of strings.
func identifierList(key string, value any) ([]any, error) {
	switch v := value.(type) {
	case string:
		return []any{v}, nil
	case []any:
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return nil, newValueError(key, fmt.Sprintf("identifier %v is not a string", item))
			}
		}
		return v, nil
	default:
		return nil, newValueError(key, "expected a list of identifiers")
	}
}
