package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown.
func WithTx(ctx context.Context, db *bun.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.IDB) error) error {
	return db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// TxRunner runs a unit of work atomically. Services depend on this instead of
// *bun.DB so they can be exercised without a database.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error
}

// BunTxRunner is the TxRunner backed by a real connection pool
type BunTxRunner struct {
	db *bun.DB
}

func NewTxRunner(db *bun.DB) *BunTxRunner {
	return &BunTxRunner{db: db}
}

func (r *BunTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	return WithTx(ctx, r.db, nil, fn)
}
