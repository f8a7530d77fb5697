package thrift

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// isoLayout matches the millisecond ISO-8601 form timestamps are compared in.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatInstant renders t in UTC as ISO-8601 with milliseconds.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// FormatEpochMillis renders an epoch-millisecond timestamp as ISO-8601.
func FormatEpochMillis(ms int64) string {
	return FormatInstant(time.UnixMilli(ms))
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last millisecond of t's day in UTC.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// StartOfMonth returns midnight UTC on the first of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// RewriteDateEquality replaces every "is" leaf on a date column with a
// start-of-day to end-of-day range. Timestamps carry sub-second precision, so
// plain equality would almost never match. Other operators are untouched.
// The input is not modified.
func RewriteDateEquality(table *TableAllowlist, conditions []Condition) ([]Condition, error) {
	if len(conditions) == 0 {
		return conditions, nil
	}
	out := make([]Condition, len(conditions))
	for i, c := range conditions {
		rewritten, err := rewriteDate(table, c)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

func rewriteDate(table *TableAllowlist, c Condition) (Condition, error) {
	if c.IsComposite() {
		children, err := RewriteDateEquality(table, c.Children)
		if err != nil {
			return Condition{}, err
		}
		c.Children = children
		return c, nil
	}

	if c.Operator != OpIs || !table.IsDateColumn(c.Property) {
		return c, nil
	}
	return dayRange(c.Property, c.Value)
}

// dayRange builds the day-bounded replacement for property = value.
func dayRange(property string, value any) (Condition, error) {
	instant, err := parseInstant(value)
	if err != nil {
		return Condition{}, newValueError(property, err.Error())
	}
	return And(
		C(property, OpGreaterThanOrEqualTo, FormatInstant(StartOfDay(instant))),
		C(property, OpLessThanOrEqualTo, FormatInstant(EndOfDay(instant))),
	), nil
}

// parseInstant accepts epoch milliseconds or an ISO-8601 date or timestamp.
func parseInstant(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.UnixMilli(x), nil
	case int:
		return time.UnixMilli(int64(x)), nil
	case float64:
		return time.UnixMilli(int64(x)), nil
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms), nil
	case string:
		s := strings.TrimSpace(x)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a date", x)
	default:
		return time.Time{}, fmt.Errorf("%T is not a date", v)
	}
}
