package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// MockPaymentRepository mocks ports.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Payment, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the caller cannot mutate the stored fixture
	return args.Get(0).(*domain.Payment).Clone(), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) List(ctx context.Context, db ports.DBTX, filter ports.PaymentFilter) ([]*domain.Payment, error) {
	args := m.Called(ctx, db, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListOpenDueBefore(ctx context.Context, db ports.DBTX, firmID string, day time.Time, afterID string, limit int32) ([]*domain.Payment, error) {
	args := m.Called(ctx, db, firmID, day, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

// MockClientDirectory mocks ports.ClientDirectory
type MockClientDirectory struct {
	mock.Mock
}

func (m *MockClientDirectory) ClientExists(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}
