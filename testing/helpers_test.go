package testing

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zoobzio/thrift"
	"github.com/zoobzio/thrift/units"
)

func newSQLiteLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return NewLedger(t, db).Create()
}

func newService(t *testing.T) *thrift.Thrift {
	t.Helper()
	a, err := thrift.DefaultAllowlist()
	if err != nil {
		t.Fatalf("DefaultAllowlist() failed: %v", err)
	}
	th, err := thrift.New(a)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return th
}

func seed(l *Ledger) {
	l.AddAccount(
		thrift.Account{AccountID: "acct-1", OwnerUserID: "user-1", ResponsibleClientID: "client-7"},
		thrift.Account{AccountID: "acct-2", OwnerUserID: "user-2", ResponsibleClientID: "client-7"},
		thrift.Account{AccountID: "acct-3", OwnerUserID: "user-3", ResponsibleClientID: "client-8", Frozen: true},
	)
	l.AddTransaction(
		thrift.Transaction{TransactionID: "tx-1", AccountID: "acct-1", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusSettled, Amount: 10, Unit: units.WholeCurrency},
		thrift.Transaction{TransactionID: "tx-2", AccountID: "acct-1", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusSettled, Amount: 500, Unit: units.WholeCent},
		thrift.Transaction{TransactionID: "tx-3", AccountID: "acct-2", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusPending, Amount: 40, Unit: units.WholeCurrency},
		thrift.Transaction{TransactionID: "tx-4", AccountID: "acct-3", TransactionType: thrift.TypeWithdrawal, SettlementStatus: thrift.StatusSettled, Amount: -2, Unit: units.WholeCurrency},
	)
	l.AddFriendship(
		thrift.Friendship{RelationshipID: "rel-1", InitiatedUserID: "user-1", AcceptedUserID: "user-2", RelationshipStatus: "ACTIVE"},
		thrift.Friendship{RelationshipID: "rel-2", InitiatedUserID: "user-3", AcceptedUserID: "user-1", RelationshipStatus: "ACTIVE"},
		thrift.Friendship{RelationshipID: "rel-3", InitiatedUserID: "user-3", AcceptedUserID: "user-2", RelationshipStatus: "DEACTIVATED"},
	)
}

func selectAggregate(t *testing.T, l *Ledger, name string, params thrift.AggregateCondition) []string {
	t.Helper()
	q, err := newService(t).AssembleAggregate(name, params, "")
	if err != nil {
		t.Fatalf("AssembleAggregate(%s) failed: %v", name, err)
	}
	ids, err := thrift.NewExecutor(l.DB()).Select(context.Background(), q, thrift.TransactionTable, name)
	if err != nil {
		t.Fatalf("Select(%s) failed: %v\nsql: %s", name, err, q.SQL)
	}
	return ids
}

func TestLedger_SaveCounts(t *testing.T) {
	l := newSQLiteLedger(t)
	seed(l)

	AssertIDs(t, selectAggregate(t, l, thrift.AggSaveCount, thrift.AggregateCondition{Op: thrift.OpIs, Value: 2}), "acct-1")
	AssertIDs(t, selectAggregate(t, l, thrift.AggPendingCount, thrift.AggregateCondition{Op: thrift.OpGreaterThan, Value: 0}), "acct-2")
	AssertIDs(t, selectAggregate(t, l, thrift.AggAnySaveCount, thrift.AggregateCondition{Op: thrift.OpGreaterThanOrEqualTo, Value: 1}), "acct-1", "acct-2")
}

// acct-1 holds 10 + 5 whole currency; the pending 40 on acct-2 is excluded.
func TestLedger_BalanceSum(t *testing.T) {
	l := newSQLiteLedger(t)
	seed(l)

	AssertIDs(t, selectAggregate(t, l, thrift.AggBalanceSum, thrift.AggregateCondition{Op: thrift.OpIs, Value: 15}), "acct-1")
	AssertIDs(t, selectAggregate(t, l, thrift.AggBalanceSum, thrift.AggregateCondition{Op: thrift.OpLessThan, Value: 0}), "acct-3")
	AssertIDs(t, selectAggregate(t, l, thrift.AggBalanceSum, thrift.AggregateCondition{Op: thrift.OpGreaterThan, Value: 1500, Unit: units.WholeCent}))
}

// user-1 has two active friendships, user-2 one, user-3 one plus a
// deactivated one.
func TestLedger_FriendCount(t *testing.T) {
	l := newSQLiteLedger(t)
	seed(l)

	AssertIDs(t, selectAggregate(t, l, thrift.AggFriendCount, thrift.AggregateCondition{Op: thrift.OpGreaterThanOrEqualTo, Value: 2}), "acct-1")
	AssertIDs(t, selectAggregate(t, l, thrift.AggFriendCount, thrift.AggregateCondition{Op: thrift.OpIs, Value: 1}), "acct-2", "acct-3")
}

func TestLedger_WholeUniverse(t *testing.T) {
	l := newSQLiteLedger(t)
	seed(l)
	th := newService(t)
	exec := thrift.NewExecutor(l.DB())

	tests := []struct {
		name        string
		instruction string
		want        []string
	}{
		{"specific accounts", `whole_universe from #{{"specific_accounts":["acct-1","acct-3"]}}`, []string{"acct-1", "acct-3"}},
		{"specific users", `whole_universe from #{{"specific_users":"user-2"}}`, []string{"acct-2"}},
		{"client", `whole_universe from #{{"responsibleClientId":"client-7"}}`, []string{"acct-1", "acct-2"}},
		{"frozen", `whole_universe from #{{"frozen":true}}`, []string{"acct-3"}},
		{"combined", `whole_universe from #{{"responsibleClientId":"client-7","specific_accounts":["acct-2","acct-3"]}}`, []string{"acct-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := th.CompileInstruction(tt.instruction)
			if err != nil {
				t.Fatalf("CompileInstruction() failed: %v", err)
			}
			ids, err := exec.Select(context.Background(), q, thrift.AccountTable, thrift.MethodWholeUniverse)
			if err != nil {
				t.Fatalf("Select() failed: %v", err)
			}
			AssertIDs(t, ids, tt.want...)
		})
	}
}

func TestLedger_Truncate(t *testing.T) {
	l := newSQLiteLedger(t)
	seed(l)
	l.Truncate()

	var n int
	if err := l.DB().Get(&n, "SELECT count(*) FROM accounts"); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("accounts = %d after truncate, want 0", n)
	}
}
