package thrift

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// Reserved universe keys that select explicit identifier lists.
const (
	SpecificAccounts = "specific_accounts"
	SpecificUsers    = "specific_users"
)

// reservedColumns maps reserved universe keys to the column they filter.
var reservedColumns = map[string]string{
	SpecificAccounts: "account_id",
	SpecificUsers:    "owner_user_id",
}

// UniversePair is one key of a universe object. Value is a string, int64,
// float64, bool, nil, or []any of those.
type UniversePair struct {
	Key   string
	Value any
}

// DecodeUniverse decodes a universe JSON object into its pairs, in document
// order. Bind positions follow this order, so it is kept exactly.
func DecodeUniverse(raw string) ([]UniversePair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, newUniverseError("empty payload")
	}
	if !gjson.Valid(raw) {
		return nil, newUniverseError("invalid JSON")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, newUniverseError("payload is not an object")
	}

	var pairs []UniversePair
	var decodeErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		v, err := universeValue(value)
		if err != nil {
			decodeErr = newUniverseError(key.String() + ": " + err.Error())
			return false
		}
		pairs = append(pairs, UniversePair{Key: key.String(), Value: v})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if len(pairs) == 0 {
		return nil, newUniverseError("object has no keys")
	}
	return pairs, nil
}

func universeValue(r gjson.Result) (any, error) {
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True, gjson.False:
		return r.Bool(), nil
	case gjson.String:
		return r.String(), nil
	case gjson.Number:
		if r.Num == math.Trunc(r.Num) && math.Abs(r.Num) < 1<<53 {
			return r.Int(), nil
		}
		return r.Num, nil
	}

	if !r.IsArray() {
		return nil, errNestedObject
	}
	items := r.Array()
	out := make([]any, 0, len(items))
	for _, item := range items {
		if item.IsArray() || item.IsObject() {
			return nil, errNestedObject
		}
		v, err := universeValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var errNestedObject = errors.New("nested values are not supported")

// universeColumn maps a universe key to the column it filters: reserved keys
// first, then camelCase to snake_case.
func universeColumn(key string) string {
	snake := camelToSnake(key)
	if col, ok := reservedColumns[snake]; ok {
		return col
	}
	return snake
}

// camelToSnake converts responsibleClientId to responsible_client_id and
// ownerUserID to owner_user_id. Keys already in snake_case are unchanged.
func camelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || unicode.IsUpper(prev) && nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
