// Package testing provides ledger fixtures for exercising compiled audience
// queries against a real database.
//
// The schema is portable between PostgreSQL and SQLite so the same fixtures
// back both the in-memory helper tests and the containerised integration
// suite.
//
// Example usage:
//
//	func TestAudience(t *testing.T) {
//		db := sqlx.MustConnect("sqlite3", ":memory:")
//		ledger := thrifttest.NewLedger(t, db)
//		ledger.Create()
//		ledger.AddAccount(thrift.Account{AccountID: "acct-1", OwnerUserID: "user-1"})
//
//		q, _ := thrift.CompileInstruction(allowlist, thrift.AccountTable, instruction)
//		ids, err := thrift.NewExecutor(db).Select(ctx, q, thrift.AccountTable, "whole_universe")
//
//		require.NoError(t, err)
//		thrifttest.AssertIDs(t, ids, "acct-1")
//	}
package testing

import (
	"context"
	"slices"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/thrift"
)

// LedgerSchema creates the accounts, transactions, and friendships tables.
// Identifiers are TEXT so fixtures can use readable ids.
var LedgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		responsible_client_id TEXT,
		float_id TEXT,
		human_ref TEXT,
		default_currency TEXT,
		frozen BOOLEAN NOT NULL DEFAULT FALSE,
		creation_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		owner_user_id TEXT,
		responsible_client_id TEXT,
		transaction_type TEXT NOT NULL,
		settlement_status TEXT NOT NULL,
		amount BIGINT NOT NULL,
		unit TEXT NOT NULL,
		currency TEXT,
		creation_time TIMESTAMPTZ,
		settlement_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		relationship_id TEXT PRIMARY KEY,
		initiated_user_id TEXT NOT NULL,
		accepted_user_id TEXT NOT NULL,
		relationship_status TEXT,
		creation_time TIMESTAMPTZ
	)`,
}

var ledgerTables = []string{thrift.FriendshipTable, thrift.TransactionTable, thrift.AccountTable}

const (
	insertAccount = `INSERT INTO accounts (account_id, owner_user_id, responsible_client_id, float_id, human_ref, default_currency, frozen, creation_time)
		VALUES (:account_id, :owner_user_id, :responsible_client_id, :float_id, :human_ref, :default_currency, :frozen, :creation_time)`
	insertTransaction = `INSERT INTO transactions (transaction_id, account_id, owner_user_id, responsible_client_id, transaction_type, settlement_status, amount, unit, currency, creation_time, settlement_time)
		VALUES (:transaction_id, :account_id, :owner_user_id, :responsible_client_id, :transaction_type, :settlement_status, :amount, :unit, :currency, :creation_time, :settlement_time)`
	insertFriendship = `INSERT INTO friendships (relationship_id, initiated_user_id, accepted_user_id, relationship_status, creation_time)
		VALUES (:relationship_id, :initiated_user_id, :accepted_user_id, :relationship_status, :creation_time)`
)

// Ledger seeds the ledger tables through sqlx named statements. Every
// failure is fatal to the owning test.
type Ledger struct {
	t   *testing.T
	db  *sqlx.DB
	ctx context.Context
}

// NewLedger wraps db for the duration of t.
func NewLedger(t *testing.T, db *sqlx.DB) *Ledger {
	t.Helper()
	return &Ledger{t: t, db: db, ctx: context.Background()}
}

// DB returns the underlying connection.
func (l *Ledger) DB() *sqlx.DB {
	return l.db
}

// Create runs LedgerSchema.
func (l *Ledger) Create() *Ledger {
	l.t.Helper()
	for _, stmt := range LedgerSchema {
		if _, err := l.db.ExecContext(l.ctx, stmt); err != nil {
			l.t.Fatalf("failed to create ledger table: %v", err)
		}
	}
	return l
}

// Truncate empties every ledger table.
func (l *Ledger) Truncate() {
	l.t.Helper()
	for _, table := range ledgerTables {
		if _, err := l.db.ExecContext(l.ctx, "DELETE FROM "+table); err != nil {
			l.t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

// AddAccount inserts accounts.
func (l *Ledger) AddAccount(accounts ...thrift.Account) *Ledger {
	l.t.Helper()
	for _, a := range accounts {
		l.insert(insertAccount, a)
	}
	return l
}

// AddTransaction inserts transactions.
func (l *Ledger) AddTransaction(txs ...thrift.Transaction) *Ledger {
	l.t.Helper()
	for _, tx := range txs {
		l.insert(insertTransaction, tx)
	}
	return l
}

// AddFriendship inserts friendships.
func (l *Ledger) AddFriendship(friendships ...thrift.Friendship) *Ledger {
	l.t.Helper()
	for _, f := range friendships {
		l.insert(insertFriendship, f)
	}
	return l
}

func (l *Ledger) insert(query string, row any) {
	l.t.Helper()
	if _, err := l.db.NamedExecContext(l.ctx, query, row); err != nil {
		l.t.Fatalf("failed to insert fixture: %v", err)
	}
}

// AssertIDs compares account ids ignoring order.
func AssertIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	g := slices.Clone(got)
	w := slices.Clone(want)
	slices.Sort(g)
	slices.Sort(w)
	if !slices.Equal(g, w) {
		t.Errorf("ids = %v, want %v", g, w)
	}
}
