// Package integration runs compiled audience queries against PostgreSQL.
// These tests use testcontainers to spin up a PostgreSQL database automatically.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zoobzio/thrift"
	thrifttest "github.com/zoobzio/thrift/testing"
	"github.com/zoobzio/thrift/units"
)

// fixedNow anchors month and window boundaries.
var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

// testDB holds a database connection for tests.
type testDB struct {
	db        *sqlx.DB
	container *postgres.PostgresContainer
}

// setupTestDB creates a PostgreSQL container and returns a database connection.
func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	return &testDB{
		db:        db,
		container: pgContainer,
	}
}

// cleanup closes the database and terminates the container.
func (tdb *testDB) cleanup(t *testing.T) {
	t.Helper()
	if tdb.db != nil {
		tdb.db.Close()
	}
	if tdb.container != nil {
		if err := tdb.container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
}

// newThrift builds a compiler over the default tables with a pinned clock.
func newThrift(t *testing.T) *thrift.Thrift {
	t.Helper()
	a, err := thrift.DefaultAllowlist()
	if err != nil {
		t.Fatalf("DefaultAllowlist() failed: %v", err)
	}
	th, err := thrift.New(a, thrift.WithRegistry(thrift.NewRegistry(thrift.WithClock(func() time.Time { return fixedNow }))))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return th
}

func at(day int, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

// seedLedger loads a small month of activity.
func seedLedger(l *thrifttest.Ledger) {
	l.AddAccount(
		thrift.Account{AccountID: "acct-1", OwnerUserID: "user-1", ResponsibleClientID: "client-7", CreationTime: at(1, 9)},
		thrift.Account{AccountID: "acct-2", OwnerUserID: "user-2", ResponsibleClientID: "client-7", CreationTime: at(2, 9)},
		thrift.Account{AccountID: "acct-3", OwnerUserID: "user-3", ResponsibleClientID: "client-8", CreationTime: at(3, 9)},
		thrift.Account{AccountID: "acct-4", OwnerUserID: "user-4", ResponsibleClientID: "client-8", CreationTime: at(4, 9)},
	)
	l.AddTransaction(
		thrift.Transaction{TransactionID: "tx-1", AccountID: "acct-1", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusSettled, Amount: 100, Unit: units.WholeCurrency, CreationTime: at(2, 12)},
		thrift.Transaction{TransactionID: "tx-2", AccountID: "acct-1", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusSettled, Amount: 2500, Unit: units.WholeCent, CreationTime: at(10, 12)},
		thrift.Transaction{TransactionID: "tx-3", AccountID: "acct-2", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusSettled, Amount: 5, Unit: units.WholeCurrency, CreationTime: time.Date(2024, time.February, 20, 12, 0, 0, 0, time.UTC)},
		thrift.Transaction{TransactionID: "tx-4", AccountID: "acct-2", TransactionType: thrift.TypeUserSaving, SettlementStatus: thrift.StatusPending, Amount: 30, Unit: units.WholeCurrency, CreationTime: at(14, 8)},
		thrift.Transaction{TransactionID: "tx-5", AccountID: "acct-3", TransactionType: thrift.TypeAccrual, SettlementStatus: thrift.StatusAccrued, Amount: 40000, Unit: units.HundredthCent, CreationTime: at(14, 23)},
	)
	l.AddFriendship(
		thrift.Friendship{RelationshipID: "rel-1", InitiatedUserID: "user-1", AcceptedUserID: "user-2", RelationshipStatus: "ACTIVE", CreationTime: at(1, 0)},
		thrift.Friendship{RelationshipID: "rel-2", InitiatedUserID: "user-3", AcceptedUserID: "user-1", RelationshipStatus: "ACTIVE", CreationTime: at(1, 0)},
	)
}
