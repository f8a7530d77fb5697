package thrift

// Condition is one node of a selection predicate tree. It is either a
// comparison leaf (Property, Operator, Value) or a composite (Operator and/or
// with Children).
//
// Leaf JSON:
//
//	{"prop": "transaction_type", "op": "is", "value": "USER_SAVING_EVENT"}
//
// Integer leaf:
//
//	{"prop": "count(transaction_id)", "op": "greater_than", "value": 3, "valueType": "int"}
//
// Composite JSON:
//
//	{
//	  "op": "or",
//	  "children": [
//	    {"op": "and", "children": [ ... ]},
//	    {"prop": "settlement_status", "op": "is", "value": "PENDING"}
//	  ]
//	}
type Condition struct {
	Property  string      `json:"prop,omitempty"`
	Operator  Operator    `json:"op"`
	Value     any         `json:"value,omitempty"`
	ValueType ValueType   `json:"valueType,omitempty"`
	IsArray   bool        `json:"isArray,omitempty"`
	Children  []Condition `json:"children,omitempty"`
}

// ValueType tags how a leaf value renders.
type ValueType string

// Value types. The zero value renders as a string.
const (
	ValueString ValueType = "string"
	ValueInt    ValueType = "int"
)

// IsComposite reports whether c joins child conditions.
func (c Condition) IsComposite() bool {
	return c.Operator.IsComposite()
}

// C creates a string comparison leaf.
//
// Example:
//
//	thrift.C("settlement_status", thrift.OpIs, "SETTLED")
func C(property string, op Operator, value string) Condition {
	return Condition{Property: property, Operator: op, Value: value, ValueType: ValueString}
}

// Int creates an integer comparison leaf that renders unquoted.
func Int(property string, op Operator, value int64) Condition {
	return Condition{Property: property, Operator: op, Value: value, ValueType: ValueInt}
}

// In creates an IN leaf over string values.
func In(property string, values ...string) Condition {
	return Condition{Property: property, Operator: OpIn, Value: values, ValueType: ValueString, IsArray: true}
}

// And joins conditions with AND.
func And(children ...Condition) Condition {
	return Condition{Operator: OpAnd, Children: children}
}

// Or joins conditions with OR.
func Or(children ...Condition) Condition {
	return Condition{Operator: OpOr, Children: children}
}

// Walk visits c and every descendant depth-first, parents before children.
// Returning false from fn stops descent into that node's children.
func (c Condition) Walk(fn func(Condition) bool) {
	if !fn(c) {
		return
	}
	for _, child := range c.Children {
		child.Walk(fn)
	}
}

// Leaves returns the number of comparison leaves in c.
func (c Condition) Leaves() int {
	n := 0
	c.Walk(func(node Condition) bool {
		if !node.IsComposite() {
			n++
		}
		return true
	})
	return n
}

// Depth returns the nesting depth of c; a single leaf has depth 1.
func (c Condition) Depth() int {
	if !c.IsComposite() {
		return 1
	}
	deepest := 0
	for _, child := range c.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
