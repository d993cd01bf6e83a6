package ports

import (
	"context"

	"github.com/kevin07696/clientledger/internal/domain"
)

// PlanChangeRequest asks what it takes to move an account to another plan
type PlanChangeRequest struct {
	AccountID    string
	TargetPlanID string
	Interval     domain.BillingInterval
}

// PlanChangeService defines the port for plan change resolution
type PlanChangeService interface {
	// ResolvePlanChange loads the account's subscription and the target plan
	// and returns the billing action the caller must take
	ResolvePlanChange(ctx context.Context, req *PlanChangeRequest) (*domain.PlanChangeDecision, error)

	// ListPlans returns the plan catalogue
	ListPlans(ctx context.Context) ([]*domain.Plan, error)
}
