package integration

import (
	"context"
	"testing"

	"github.com/zoobzio/thrift"
	thrifttest "github.com/zoobzio/thrift/testing"
	"github.com/zoobzio/thrift/units"
)

func TestAudience(t *testing.T) {
	tdb := setupTestDB(t)
	defer tdb.cleanup(t)

	ledger := thrifttest.NewLedger(t, tdb.db).Create()
	th := newThrift(t)
	exec := thrift.NewExecutor(tdb.db)
	ctx := context.Background()

	aggregate := func(t *testing.T, name string, params thrift.AggregateCondition) []string {
		t.Helper()
		q, err := th.AssembleAggregate(name, params, "")
		if err != nil {
			t.Fatalf("AssembleAggregate(%s) failed: %v", name, err)
		}
		ids, err := exec.Select(ctx, q, thrift.TransactionTable, name)
		if err != nil {
			t.Fatalf("Select(%s) failed: %v\nsql: %s", name, err, q.SQL)
		}
		return ids
	}

	instruction := func(t *testing.T, text string) []string {
		t.Helper()
		q, err := th.CompileInstruction(text)
		if err != nil {
			t.Fatalf("CompileInstruction() failed: %v", err)
		}
		ids, err := exec.Select(ctx, q, thrift.AccountTable, "instruction")
		if err != nil {
			t.Fatalf("Select() failed: %v\nsql: %s", err, q.SQL)
		}
		return ids
	}

	t.Run("aggregates", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		thrifttest.AssertIDs(t, aggregate(t, thrift.AggSaveCount, thrift.AggregateCondition{Op: thrift.OpIs, Value: 2}), "acct-1")
		thrifttest.AssertIDs(t, aggregate(t, thrift.AggPendingCount, thrift.AggregateCondition{Op: thrift.OpGreaterThan, Value: 0}), "acct-2")

		start := at(5, 0).UnixMilli()
		thrifttest.AssertIDs(t, aggregate(t, thrift.AggSaveCount, thrift.AggregateCondition{
			Op: thrift.OpGreaterThanOrEqualTo, Value: 1, StartTime: &start,
		}), "acct-1")

		thrifttest.AssertIDs(t, aggregate(t, thrift.AggBalanceSum, thrift.AggregateCondition{
			Op: thrift.OpGreaterThanOrEqualTo, Value: 4,
		}), "acct-1", "acct-2", "acct-3")
		thrifttest.AssertIDs(t, aggregate(t, thrift.AggBalanceSum, thrift.AggregateCondition{
			Op: thrift.OpIs, Value: 12500, Unit: units.WholeCent,
		}), "acct-1")

		thrifttest.AssertIDs(t, aggregate(t, thrift.AggSavedThisMonth, thrift.AggregateCondition{Op: thrift.OpGreaterThan, Value: 1}), "acct-1")
		thrifttest.AssertIDs(t, aggregate(t, thrift.AggFriendCount, thrift.AggregateCondition{Op: thrift.OpGreaterThanOrEqualTo, Value: 2}), "acct-1")
		thrifttest.AssertIDs(t, aggregate(t, thrift.AggDateIs, thrift.AggregateCondition{Op: thrift.OpIs, Value: "2024-03-14"}), "acct-2", "acct-3")
	})

	t.Run("scoped aggregate", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		q, err := th.AssembleAggregate(thrift.AggBalanceSum, thrift.AggregateCondition{Op: thrift.OpGreaterThan, Value: 0}, "acct-2")
		if err != nil {
			t.Fatalf("AssembleAggregate() failed: %v", err)
		}
		ids, err := exec.Select(ctx, q, thrift.TransactionTable, thrift.AggBalanceSum)
		if err != nil {
			t.Fatalf("Select() failed: %v", err)
		}
		thrifttest.AssertIDs(t, ids, "acct-2")
	})

	t.Run("date equality in a specification", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		q, err := th.Assemble(thrift.Specification{
			Table: thrift.TransactionTable,
			Conditions: []thrift.Condition{thrift.And(
				thrift.C("settlement_status", thrift.OpIs, thrift.StatusSettled),
				thrift.C("creation_time", thrift.OpIs, "2024-03-10"),
			)},
		})
		if err != nil {
			t.Fatalf("Assemble() failed: %v", err)
		}
		ids, err := exec.Select(ctx, q, thrift.TransactionTable, "specification")
		if err != nil {
			t.Fatalf("Select() failed: %v", err)
		}
		thrifttest.AssertIDs(t, ids, "acct-1")
	})

	t.Run("whole universe", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		thrifttest.AssertIDs(t, instruction(t, `whole_universe from #{{"responsibleClientId":"client-8"}}`), "acct-3", "acct-4")
		thrifttest.AssertIDs(t, instruction(t, `whole_universe from #{{"specific_users":["user-1","user-4"]}}`), "acct-1", "acct-4")
		thrifttest.AssertIDs(t, instruction(t, `whole_universe from #{{"responsibleClientId":"client-9"}}`))
	})

	t.Run("random sample", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		ids := instruction(t, `random_sample #{0.5} from #{{"specific_accounts":["acct-1","acct-2","acct-3","acct-4"]}}`)
		if len(ids) != 2 {
			t.Fatalf("sampled %d accounts, want 2: %v", len(ids), ids)
		}
		for _, id := range ids {
			switch id {
			case "acct-1", "acct-2", "acct-3", "acct-4":
			default:
				t.Errorf("sampled %q outside the universe", id)
			}
		}

		all := instruction(t, `random_sample #{1} from #{{"responsibleClientId":"client-7"}}`)
		thrifttest.AssertIDs(t, all, "acct-1", "acct-2")
	})

	t.Run("assembled sample", func(t *testing.T) {
		ledger.Truncate()
		seedLedger(ledger)

		q, err := th.Assemble(thrift.Specification{
			Table:      thrift.TransactionTable,
			Conditions: []thrift.Condition{thrift.C("transaction_type", thrift.OpIs, thrift.TypeUserSaving)},
			Sample:     &thrift.Sample{Random: 0.5},
		})
		if err != nil {
			t.Fatalf("Assemble() failed: %v", err)
		}
		ids, err := exec.Select(ctx, q, thrift.TransactionTable, "specification")
		if err != nil {
			t.Fatalf("Select() failed: %v\nsql: %s", err, q.SQL)
		}
		if len(ids) != 1 {
			t.Errorf("sampled %d accounts, want 1: %v", len(ids), ids)
		}
	})
}
