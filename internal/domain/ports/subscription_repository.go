package ports

import (
	"context"

	"github.com/kevin07696/clientledger/internal/domain"
)

// PlanRepository reads the plan catalogue
type PlanRepository interface {
	// GetByID returns domain.ErrPlanNotFound when no plan exists
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Plan, error)

	List(ctx context.Context, db DBTX) ([]*domain.Plan, error)
}

// SubscriptionStateRepository reads the subscription snapshot of an account
type SubscriptionStateRepository interface {
	// GetByAccountID returns domain.ErrSubscriptionNotFound when the account has none
	GetByAccountID(ctx context.Context, db DBTX, accountID string) (*domain.SubscriptionState, error)
}
