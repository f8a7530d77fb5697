// Package units converts monetary amounts between the three units the savings
// ledger stores: whole currency, whole cents and hundredths of a cent.
//
// Every threshold and sum is unit-tagged. Comparisons normalize to
// HundredthCent, the canonical unit, before anything is embedded in a query.
package units

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit identifies the denomination an integer amount is expressed in.
type Unit string

// Supported units.
const (
	WholeCurrency Unit = "WHOLE_CURRENCY"
	WholeCent     Unit = "WHOLE_CENT"
	HundredthCent Unit = "HUNDREDTH_CENT"
)

// Canonical is the unit all monetary comparisons are normalized to.
const Canonical = HundredthCent

var (
	// ErrInvalidUnit is returned when a conversion names a unit outside the enum.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrOverflow is returned when a converted amount does not fit in an int64.
	ErrOverflow = errors.New("amount overflows int64")
)

// multipliers holds the exact conversion factors, keyed from -> to.
var multipliers = map[Unit]map[Unit]decimal.Decimal{
	WholeCurrency: {
		WholeCurrency: decimal.NewFromInt(1),
		WholeCent:     decimal.NewFromInt(100),
		HundredthCent: decimal.NewFromInt(10000),
	},
	WholeCent: {
		WholeCurrency: decimal.RequireFromString("0.01"),
		WholeCent:     decimal.NewFromInt(1),
		HundredthCent: decimal.NewFromInt(100),
	},
	HundredthCent: {
		WholeCurrency: decimal.RequireFromString("0.0001"),
		WholeCent:     decimal.RequireFromString("0.01"),
		HundredthCent: decimal.NewFromInt(1),
	},
}

// Valid reports whether u is one of the three supported units.
func (u Unit) Valid() bool {
	_, ok := multipliers[u]
	return ok
}

// ParseUnit validates a unit name. An empty name is rejected.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	return u, nil
}

// Multiplier returns the factor that converts an amount in from to an amount in to.
func Multiplier(from, to Unit) (decimal.Decimal, error) {
	row, ok := multipliers[from]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidUnit, from)
	}
	m, ok := row[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidUnit, to)
	}
	return m, nil
}

// Convert converts amount from one unit to another.
// The result is exact; converting down (e.g. cents to whole currency) may
// produce a fractional value.
//
// Example:
//
//	v, _ := units.Convert(100, units.WholeCurrency, units.HundredthCent)
//	// v == 1000000
func Convert(amount int64, from, to Unit) (decimal.Decimal, error) {
	m, err := Multiplier(from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(amount).Mul(m), nil
}

// ConvertToCanonical converts amount to HundredthCent. Converting up never
// loses precision, so the result is returned as an integer. Results outside
// the int64 range fail with ErrOverflow.
func ConvertToCanonical(amount int64, from Unit) (int64, error) {
	v, err := Convert(amount, from, Canonical)
	if err != nil {
		return 0, err
	}
	return fitInt64(v)
}

// fitInt64 returns the integer part of d, or ErrOverflow.
func fitInt64(d decimal.Decimal) (int64, error) {
	n := d.BigInt()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return n.Int64(), nil
}

// Row is a single ledger amount as stored: value plus unit.
type Row struct {
	Amount int64 `json:"amount" db:"amount"`
	Unit   Unit  `json:"unit" db:"unit"`
}

// SumRows converts each row to target and returns the total, rounded half
// away from zero to an integer.
//
// Rows must already be grouped by currency. Mixing currencies in one call is
// a caller error and is not detected here.
func SumRows(rows []Row, target Unit) (int64, error) {
	if !target.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, target)
	}
	total := decimal.Zero
	for _, r := range rows {
		v, err := Convert(r.Amount, r.Unit, target)
		if err != nil {
			return 0, err
		}
		total = total.Add(v)
	}
	return fitInt64(total.Round(0))
}

// Amount is a unit- and currency-tagged monetary value.
type Amount struct {
	Amount   int64  `json:"amount"`
	Unit     Unit   `json:"unit"`
	Currency string `json:"currency"`
}

// In returns the amount expressed in unit u, keeping the currency.
func (a Amount) In(u Unit) (decimal.Decimal, error) {
	return Convert(a.Amount, a.Unit, u)
}

// String renders the amount as "<amount> <unit> <currency>".
func (a Amount) String() string {
	return fmt.Sprintf("%d %s %s", a.Amount, a.Unit, a.Currency)
}
