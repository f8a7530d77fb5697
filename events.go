package thrift

import "github.com/zoobzio/capitan"

// Audience query signals.
var (
	// QueryStarted is emitted when a compiled audience query begins execution.
	// Fields: TableKey, MethodKey, SQLKey.
	QueryStarted = capitan.NewSignal("audience.query.started", "Audience query execution started")

	// QueryCompleted is emitted when an audience query completes successfully.
	// Fields: TableKey, MethodKey, DurationMsKey, RowsReturnedKey.
	QueryCompleted = capitan.NewSignal("audience.query.completed", "Audience query completed successfully")

	// QueryFailed is emitted when an audience query fails.
	// Fields: TableKey, MethodKey, DurationMsKey, ErrorKey.
	QueryFailed = capitan.NewSignal("audience.query.failed", "Audience query failed with error")

	// AllowlistSwapped is emitted when a Guard installs a new allowlist.
	// Fields: TableCountKey.
	AllowlistSwapped = capitan.NewSignal("audience.allowlist.swapped", "Allowlist replaced")
)

// Event field keys.
var (
	// TableKey identifies the table an audience is selected from.
	TableKey = capitan.NewStringKey("table")

	// MethodKey identifies the selection method (whole_universe, random_sample, spec).
	MethodKey = capitan.NewStringKey("method")

	// SQLKey contains the compiled SQL.
	SQLKey = capitan.NewStringKey("sql")

	// DurationMsKey contains the execution duration in milliseconds.
	DurationMsKey = capitan.NewInt64Key("duration_ms")

	// RowsReturnedKey contains the number of rows the query returned.
	RowsReturnedKey = capitan.NewIntKey("rows_returned")

	// ErrorKey contains the error message when a query fails.
	ErrorKey = capitan.NewStringKey("error")

	// TableCountKey contains the number of tables in a newly installed allowlist.
	TableCountKey = capitan.NewIntKey("table_count")
)
