package thrift

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/zoobzio/thrift/units"
)

// Ledger vocabulary used by the translators.
const (
	TypeUserSaving      = "USER_SAVING_EVENT"
	TypeAccrual         = "ACCRUAL"
	TypeCapitalization  = "CAPITALIZATION"
	TypeWithdrawal      = "WITHDRAWAL"
	TypeBoostRedemption = "BOOST_REDEMPTION"

	StatusSettled = "SETTLED"
	StatusPending = "PENDING"
	StatusAccrued = "ACCRUED"
)

// Aggregate operation names.
const (
	AggSaveCount            = "save_count"
	AggPendingCount         = "pending_count"
	AggAnySaveCount         = "any_save_count"
	AggBalanceSum           = "balance_sum"
	AggSavedThisMonth       = "saved_this_month"
	AggFriendCount          = "friend_count"
	AggBoostRedemptionCount = "boost_redemption_count"
	AggDateIs               = "date_is"
)

// AggregateCondition is a semantic criterion such as "has saved more than 20
// this month", before translation into column conditions.
//
// Example JSON:
//
//	{"op": "greater_than", "value": 20, "unit": "WHOLE_CURRENCY", "startTime": 1700000000000}
type AggregateCondition struct {
	Op        Operator   `json:"op"`
	Value     any        `json:"value"`
	Unit      units.Unit `json:"unit,omitempty"`
	StartTime *int64     `json:"startTime,omitempty"`
	EndTime   *int64     `json:"endTime,omitempty"`

	// Property and Table are read by date_is only.
	Property string `json:"property,omitempty"`
	Table    string `json:"table,omitempty"`
}

// AggregateFragment is the output of a translator, ready for the assembler.
type AggregateFragment struct {
	Table          string
	Conditions     []Condition
	GroupBy        []string
	PostConditions []Condition
}

// Specification returns a Specification selecting the fragment's rows.
func (f *AggregateFragment) Specification() Specification {
	groupBy := f.GroupBy
	if groupBy == nil {
		groupBy = []string{}
	}
	return Specification{
		Table:          f.Table,
		Conditions:     f.Conditions,
		GroupBy:        groupBy,
		PostConditions: f.PostConditions,
	}
}

// ApplyFragment merges f into spec. Conditions and post-conditions are
// conjoined, the fragment's grouping columns are added, and the fragment's
// table is used when spec names none. A nil fragment leaves spec unchanged.
func ApplyFragment(spec Specification, f *AggregateFragment) Specification {
	if f == nil {
		return spec
	}
	if spec.Table == "" {
		spec.Table = f.Table
	}
	spec.Conditions = conjoin(spec.Conditions, f.Conditions)
	spec.PostConditions = conjoin(spec.PostConditions, f.PostConditions)
	if f.GroupBy != nil {
		spec.GroupBy = union(spec.GroupBy, f.GroupBy)
	}
	return spec
}

// conjoin joins both lists under a single And, since top-level conditions
// render by adjacency.
func conjoin(a, b []Condition) []Condition {
	all := make([]Condition, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	if len(all) <= 1 {
		return all
	}
	return []Condition{And(all...)}
}

func union(a, b []string) []string {
	out := append([]string{}, a...)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Scope is the implicit context a translator runs in.
type Scope struct {
	// AccountID restricts the fragment to one account when set.
	AccountID string
	// Now is the registry clock reading for this translation.
	Now time.Time
}

// Translator expands one aggregate condition into a fragment.
type Translator func(params AggregateCondition, scope Scope) (*AggregateFragment, error)

// Registry is the fixed set of aggregate translators.
type Registry struct {
	translators map[string]Translator
	now         func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the clock used for calendar-relative translators.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry returns the registry of built-in translators.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		translators: map[string]Translator{
			AggSaveCount:            countTranslator(TypeUserSaving, StatusSettled),
			AggPendingCount:         countTranslator(TypeUserSaving, StatusPending),
			AggAnySaveCount:         countTranslator(TypeUserSaving, ""),
			AggBoostRedemptionCount: countTranslator(TypeBoostRedemption, StatusSettled),
			AggBalanceSum:           balanceSum,
			AggSavedThisMonth:       savedThisMonth,
			AggFriendCount:          friendCount,
			AggDateIs:               dateIs,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.translators))
	for name := range r.translators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the translator for name, or ErrUnknownAggregateOperation.
func (r *Registry) Lookup(name string) (Translator, error) {
	t, ok := r.translators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregateOperation, name)
	}
	return t, nil
}

// Translate expands params using the named translator.
//
// An unknown name is not an error: Translate returns a nil fragment and a nil
// error, and callers treat it as "nothing matched". Use Lookup to tell the
// two apart.
func (r *Registry) Translate(name string, params AggregateCondition, accountID string) (*AggregateFragment, error) {
	t, err := r.Lookup(name)
	if errors.Is(err, ErrUnknownAggregateOperation) {
		return nil, nil
	}
	return t(params, Scope{AccountID: accountID, Now: r.now()})
}

// countTranslator counts transactions of txType per account, optionally
// restricted to one settlement status.
func countTranslator(txType, status string) Translator {
	return func(params AggregateCondition, scope Scope) (*AggregateFragment, error) {
		threshold, err := aggregateInt(params)
		if err != nil {
			return nil, err
		}

		conds := []Condition{C("transaction_type", OpIs, txType)}
		if status != "" {
			conds = append(conds, C("settlement_status", OpIs, status))
		}
		conds = append(conds, window(params)...)
		conds = append(conds, scoped(scope)...)

		return &AggregateFragment{
			Table:          TransactionTable,
			Conditions:     []Condition{And(conds...)},
			GroupBy:        []string{"account_id"},
			PostConditions: []Condition{Int(CountTransactions, params.Op, threshold)},
		}, nil
	}
}

func balanceSum(params AggregateCondition, scope Scope) (*AggregateFragment, error) {
	threshold, err := canonicalThreshold(params)
	if err != nil {
		return nil, err
	}

	conds := []Condition{
		In("settlement_status", StatusSettled, StatusAccrued),
		In("transaction_type", TypeUserSaving, TypeAccrual, TypeCapitalization, TypeWithdrawal, TypeBoostRedemption),
	}
	conds = append(conds, window(params)...)
	conds = append(conds, scoped(scope)...)

	return &AggregateFragment{
		Table:          TransactionTable,
		Conditions:     []Condition{And(conds...)},
		GroupBy:        []string{"account_id"},
		PostConditions: []Condition{Int(NormalizedAmountSum, params.Op, threshold)},
	}, nil
}

func savedThisMonth(params AggregateCondition, scope Scope) (*AggregateFragment, error) {
	threshold, err := canonicalThreshold(params)
	if err != nil {
		return nil, err
	}

	conds := []Condition{
		C("settlement_status", OpIs, StatusSettled),
		C("transaction_type", OpIs, TypeUserSaving),
		C("creation_time", OpGreaterThan, FormatInstant(StartOfMonth(scope.Now))),
	}
	conds = append(conds, scoped(scope)...)

	return &AggregateFragment{
		Table:          TransactionTable,
		Conditions:     []Condition{And(conds...)},
		GroupBy:        []string{"account_id"},
		PostConditions: []Condition{Int(NormalizedAmountSum, params.Op, threshold)},
	}, nil
}

func friendCount(params AggregateCondition, scope Scope) (*AggregateFragment, error) {
	threshold, err := aggregateInt(params)
	if err != nil {
		return nil, err
	}

	var conds []Condition
	if scope.AccountID != "" {
		conds = scoped(scope)
	}

	return &AggregateFragment{
		Table:          AccountTable,
		Conditions:     conds,
		GroupBy:        []string{"account_id", "owner_user_id"},
		PostConditions: []Condition{Int(FriendCount, params.Op, threshold)},
	}, nil
}

func dateIs(params AggregateCondition, scope Scope) (*AggregateFragment, error) {
	if !params.Op.IsComparison() || params.Op == OpIn {
		return nil, newOperatorError(string(params.Op))
	}

	property := params.Property
	if property == "" {
		property = "creation_time"
	}
	table := params.Table
	if table == "" {
		table = TransactionTable
	}

	var cond Condition
	if params.Op == OpIs {
		var err error
		if cond, err = dayRange(property, params.Value); err != nil {
			return nil, err
		}
	} else {
		instant, err := parseInstant(params.Value)
		if err != nil {
			return nil, newValueError(property, err.Error())
		}
		cond = C(property, params.Op, FormatInstant(instant))
	}

	conds := append([]Condition{cond}, scoped(scope)...)
	if len(conds) > 1 {
		conds = []Condition{And(conds...)}
	}

	return &AggregateFragment{
		Table:      table,
		Conditions: conds,
	}, nil
}

// window renders the optional creation_time bounds.
func window(params AggregateCondition) []Condition {
	var conds []Condition
	if params.StartTime != nil {
		conds = append(conds, C("creation_time", OpGreaterThan, FormatEpochMillis(*params.StartTime)))
	}
	if params.EndTime != nil {
		conds = append(conds, C("creation_time", OpLessThan, FormatEpochMillis(*params.EndTime)))
	}
	return conds
}

func scoped(scope Scope) []Condition {
	if scope.AccountID == "" {
		return nil
	}
	return []Condition{C("account_id", OpIs, scope.AccountID)}
}

// aggregateInt validates the operator and returns the integer threshold.
func aggregateInt(params AggregateCondition) (int64, error) {
	if !params.Op.IsComparison() || params.Op == OpIn {
		return 0, newOperatorError(string(params.Op))
	}
	n, err := toInt64(params.Value)
	if err != nil {
		return 0, newValueError("threshold", err.Error())
	}
	return n, nil
}

// canonicalThreshold converts a monetary threshold to hundredth-cent. The
// stated unit defaults to whole currency.
func canonicalThreshold(params AggregateCondition) (int64, error) {
	amount, err := aggregateInt(params)
	if err != nil {
		return 0, err
	}
	unit := params.Unit
	if unit == "" {
		unit = units.WholeCurrency
	}
	canonical, err := units.ConvertToCanonical(amount, unit)
	if err != nil {
		return 0, fmt.Errorf("%w: threshold: %w", ErrInvalidValue, err)
	}
	return canonical, nil
}
