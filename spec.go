package thrift

// Default projection and grouping applied when a Specification omits them.
var (
	DefaultColumns = []string{"account_id"}
	DefaultGroupBy = []string{"account_id"}
)

// Specification describes an audience selection in a serializable format.
// It is usually unmarshaled from JSON supplied by an internal caller.
//
// Example JSON:
//
//	{
//	  "table": "transactions",
//	  "columns": ["account_id"],
//	  "columnsToCount": ["transaction_id"],
//	  "conditions": [
//	    {"op": "and", "children": [
//	      {"prop": "transaction_type", "op": "is", "value": "USER_SAVING_EVENT"},
//	      {"prop": "settlement_status", "op": "is", "value": "SETTLED"}
//	    ]}
//	  ],
//	  "groupBy": ["account_id"],
//	  "postConditions": [
//	    {"prop": "count(transaction_id)", "op": "greater_than", "value": 3, "valueType": "int"}
//	  ],
//	  "sample": {"random": 0.25}
//	}
//
// Columns, ColumnsToCount and GroupBy entries that are not allowlisted are
// dropped silently. A condition leaf on a column that is not allowlisted fails
// the whole compilation with ErrPropertyNotSupported.
//
// Columns and GroupBy default to account_id when absent (nil). An explicit
// empty GroupBy disables grouping.
type Specification struct {
	Table          string      `json:"table"`
	Columns        []string    `json:"columns,omitempty"`
	ColumnsToCount []string    `json:"columnsToCount,omitempty"`
	Conditions     []Condition `json:"conditions,omitempty"`
	GroupBy        []string    `json:"groupBy"`
	PostConditions []Condition `json:"postConditions,omitempty"`
	Sample         *Sample     `json:"sample,omitempty"`
}

// Sample asks for a random subset of the selected rows. Random is the
// fraction to keep, in (0, 1].
type Sample struct {
	Random float64 `json:"random"`
}

// Query is a compiled statement with $n placeholders and its bind values.
type Query struct {
	SQL  string
	Args []any
}
