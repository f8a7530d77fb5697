package thrift

import (
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/thrift/units"
)

// Default table names.
const (
	TransactionTable = "transactions"
	AccountTable     = "accounts"
	FriendshipTable  = "friendships"
)

// Transaction is a ledger row as the analytics table exposes it.
type Transaction struct {
	TransactionID       string     `db:"transaction_id" type:"uuid" constraints:"primary_key"`
	AccountID           string     `db:"account_id" type:"uuid" constraints:"not_null"`
	OwnerUserID         string     `db:"owner_user_id" type:"uuid"`
	ResponsibleClientID string     `db:"responsible_client_id" type:"text"`
	TransactionType     string     `db:"transaction_type" type:"text" constraints:"not_null"`
	SettlementStatus    string     `db:"settlement_status" type:"text" constraints:"not_null"`
	Amount              int64      `db:"amount" type:"bigint"`
	Unit                units.Unit `db:"unit" type:"text"`
	Currency            string     `db:"currency" type:"text"`
	CreationTime        time.Time  `db:"creation_time" type:"timestamptz"`
	SettlementTime      *time.Time `db:"settlement_time" type:"timestamptz"`
}

// Account is a savings account row; the selection universe.
type Account struct {
	AccountID           string    `db:"account_id" type:"uuid" constraints:"primary_key"`
	OwnerUserID         string    `db:"owner_user_id" type:"uuid" constraints:"not_null"`
	ResponsibleClientID string    `db:"responsible_client_id" type:"text"`
	FloatID             string    `db:"float_id" type:"text"`
	HumanRef            string    `db:"human_ref" type:"text"`
	DefaultCurrency     string    `db:"default_currency" type:"text"`
	Frozen              bool      `db:"frozen" type:"boolean"`
	CreationTime        time.Time `db:"creation_time" type:"timestamptz"`
}

// Friendship is a bidirectional relationship between two users.
type Friendship struct {
	RelationshipID     string    `db:"relationship_id" type:"uuid" constraints:"primary_key"`
	InitiatedUserID    string    `db:"initiated_user_id" type:"uuid" constraints:"not_null"`
	AcceptedUserID     string    `db:"accepted_user_id" type:"uuid" constraints:"not_null"`
	RelationshipStatus string    `db:"relationship_status" type:"text"`
	CreationTime       time.Time `db:"creation_time" type:"timestamptz"`
}

// Aggregate expressions allowed verbatim as properties.
const (
	CountAccounts     = "count(account_id)"
	CountTransactions = "count(transaction_id)"
)

// NormalizedAmountSum sums ledger amounts after converting each row to
// hundredth-cent according to its unit.
var NormalizedAmountSum = normalizedSumExpression()

// FriendCount counts active friendships of an account's owner. It is a
// correlated subquery on the accounts table.
var FriendCount = fmt.Sprintf(
	"(select count(*) from %s where relationship_status='ACTIVE' and (initiated_user_id=%s.owner_user_id or accepted_user_id=%s.owner_user_id))",
	FriendshipTable, AccountTable, AccountTable,
)

func normalizedSumExpression() string {
	var b strings.Builder
	b.WriteString("sum(case")
	for _, u := range []units.Unit{units.WholeCurrency, units.WholeCent, units.HundredthCent} {
		m, err := units.Multiplier(u, units.Canonical)
		if err != nil {
			panic(err)
		}
		fmt.Fprintf(&b, " when unit='%s' then amount*%s", u, m.String())
	}
	b.WriteString(" end)")
	return b.String()
}

// DefaultSchemas returns the schemas of the built-in tables, derived from the
// tagged models above.
func DefaultSchemas() []TableSchema {
	return []TableSchema{
		SchemaFromModel[Transaction](TransactionTable, CountAccounts, CountTransactions, NormalizedAmountSum),
		SchemaFromModel[Account](AccountTable, CountAccounts, FriendCount),
		SchemaFromModel[Friendship](FriendshipTable),
	}
}

// DefaultAllowlist builds the allowlist for the built-in tables.
func DefaultAllowlist() (*Allowlist, error) {
	return NewAllowlist(DefaultSchemas()...)
}
