package thrift

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the postgres driver used by Connect.
	_ "github.com/lib/pq"
	"github.com/zoobzio/capitan"
)

// Executor runs compiled audience queries and returns the selected account
// IDs. The first column of each row is read as the ID.
type Executor struct {
	db     sqlx.QueryerContext
	closer io.Closer
}

// NewExecutor wraps db, which may be a *sqlx.DB or a *sqlx.Tx.
func NewExecutor(db sqlx.QueryerContext) *Executor {
	return &Executor{db: db}
}

// Connect opens and pings a postgres database.
func Connect(ctx context.Context, dsn string) (*Executor, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Executor{db: db, closer: db}, nil
}

// Close closes a database opened by Connect. It is a no-op for executors
// built with NewExecutor; the caller owns that handle.
func (e *Executor) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// Select runs q and returns the first column of every row. table and method
// label the emitted events.
func (e *Executor) Select(ctx context.Context, q Query, table, method string) ([]string, error) {
	capitan.Debug(ctx, QueryStarted,
		TableKey.Field(table),
		MethodKey.Field(method),
		SQLKey.Field(q.SQL),
	)

	startTime := time.Now()
	fail := func(err error) error {
		capitan.Error(ctx, QueryFailed,
			TableKey.Field(table),
			MethodKey.Field(method),
			DurationMsKey.Field(time.Since(startTime).Milliseconds()),
			ErrorKey.Field(err.Error()),
		)
		return err
	}

	rows, err := e.db.QueryxContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fail(fmt.Errorf("%s query failed: %w", method, err))
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			return nil, fail(fmt.Errorf("%s scan failed: %w", method, err))
		}
		if len(cols) == 0 {
			continue
		}
		ids = append(ids, idString(cols[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, fail(fmt.Errorf("row iteration failed: %w", err))
	}

	capitan.Info(ctx, QueryCompleted,
		TableKey.Field(table),
		MethodKey.Field(method),
		DurationMsKey.Field(time.Since(startTime).Milliseconds()),
		RowsReturnedKey.Field(len(ids)),
	)
	return ids, nil
}

func idString(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
