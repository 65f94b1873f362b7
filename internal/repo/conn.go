package repo

import (
	"context"
	"database/sql"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pick returns tx when a transaction is in flight, else the pool.
func pick(db *sql.DB, tx *sql.Tx) execer {
	if tx == nil {
		return db
	}
	return tx
}

type scanner interface {
	Scan(dest ...any) error
}
