package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// MockPlanRepository mocks ports.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context, db ports.DBTX) ([]*domain.Plan, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

// MockSubscriptionStateRepository mocks ports.SubscriptionStateRepository
type MockSubscriptionStateRepository struct {
	mock.Mock
}

func (m *MockSubscriptionStateRepository) GetByAccountID(ctx context.Context, db ports.DBTX, accountID string) (*domain.SubscriptionState, error) {
	args := m.Called(ctx, db, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionState), args.Error(1)
}
