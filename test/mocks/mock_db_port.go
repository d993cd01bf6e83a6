package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MockDBPort runs transaction callbacks inline with a nil transaction
type MockDBPort struct {
	// TxErr, when set, is returned instead of running the callback
	TxErr        error
	Transactions int
}

// GetDB returns nil; repositories under test are mocks that ignore it
func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

// WithTransaction executes fn with a nil transaction
func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.Transactions++
	if m.TxErr != nil {
		return m.TxErr
	}
	return fn(ctx, nil)
}

// WithReadOnlyTransaction executes fn with a nil transaction
func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}
