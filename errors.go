package thrift

import (
	"errors"
	"fmt"
)

// Compilation errors. All of them are local validation failures; none is
// coerced into an empty predicate.
var (
	// ErrTableNotSupported is returned when a table is absent from the allowlist.
	ErrTableNotSupported = errors.New("table not supported")

	// ErrPropertyNotSupported is returned when a condition references a column
	// absent from the allowlist.
	ErrPropertyNotSupported = errors.New("property not supported")

	// ErrMalformedUniverseDefinition is returned when a selection instruction's
	// universe payload is missing, empty, or not a JSON object.
	ErrMalformedUniverseDefinition = errors.New("malformed universe definition")

	// ErrInvalidRowPercentage is returned when a random_sample parameter is not
	// a fraction in (0, 1].
	ErrInvalidRowPercentage = errors.New("invalid row percentage")

	// ErrUnrecognizedSelectionMethod is returned for an unknown method token.
	ErrUnrecognizedSelectionMethod = errors.New("unrecognized selection method")

	// ErrNotYetImplemented is returned for recognized methods with no compiler.
	ErrNotYetImplemented = errors.New("not yet implemented")

	// ErrUnknownAggregateOperation is returned by Registry.Lookup. Translate
	// swallows it and returns a nil fragment.
	ErrUnknownAggregateOperation = errors.New("unknown aggregate operation")

	// ErrUnsupportedOperator is returned for operator names outside the enum,
	// or for an operator used in the wrong position.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrEmptyComposite is returned for an and/or node without children.
	ErrEmptyComposite = errors.New("composite condition has no children")

	// ErrInvalidValue is returned when a literal does not fit its operator or type.
	ErrInvalidValue = errors.New("invalid condition value")

	// ErrNilAllowlist is returned when a compiler is built without an allowlist.
	ErrNilAllowlist = errors.New("allowlist is nil")
)

func newTableError(table string) error {
	return fmt.Errorf("%w: %q", ErrTableNotSupported, table)
}

func newPropertyError(table, property string) error {
	return fmt.Errorf("%w: %q on table %q", ErrPropertyNotSupported, property, table)
}

func newOperatorError(op string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}

func newValueError(property string, cause string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidValue, property, cause)
}

func newUniverseError(cause string) error {
	return fmt.Errorf("%w: %s", ErrMalformedUniverseDefinition, cause)
}
