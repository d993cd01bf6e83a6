package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// DBExecutor implements ports.DBPort for PostgreSQL
type DBExecutor struct {
	pool *pgxpool.Pool
}

var _ ports.DBPort = (*DBExecutor)(nil)

// NewDBExecutor creates a new PostgreSQL database executor
func NewDBExecutor(pool *pgxpool.Pool) *DBExecutor {
	return &DBExecutor{pool: pool}
}

// GetDB returns the underlying connection pool
func (db *DBExecutor) GetDB() *pgxpool.Pool {
	return db.pool
}

// WithTransaction runs fn inside a read-write transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (db *DBExecutor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.run(ctx, pgx.TxOptions{}, fn)
}

// WithReadOnlyTransaction runs fn inside a read-only transaction so several
// reads see one snapshot
func (db *DBExecutor) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (db *DBExecutor) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction (%s): %w", accessMode(opts), err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && opts.AccessMode != pgx.ReadOnly {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction (%s): %w", accessMode(opts), err)
	}
	return nil
}

func accessMode(opts pgx.TxOptions) string {
	if opts.AccessMode == pgx.ReadOnly {
		return "read-only"
	}
	return "read-write"
}
