package fixtures

import (
	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/internal/domain"
)

// PlanBuilder provides fluent API for building test plans.
type PlanBuilder struct {
	plan *domain.Plan
}

// NewPlan creates a plan priced in minor units with a monthly price ID.
func NewPlan(id string, price int64) *PlanBuilder {
	return &PlanBuilder{
		plan: &domain.Plan{
			ID:    id,
			Name:  id,
			Price: decimal.NewFromInt(price),
			BillingPriceIDs: map[domain.BillingInterval]string{
				domain.BillingIntervalMonthly: "price_" + id + "_monthly",
			},
		},
	}
}

func (b *PlanBuilder) WithPriceID(interval domain.BillingInterval, priceID string) *PlanBuilder {
	b.plan.BillingPriceIDs[interval] = priceID
	return b
}

// WithoutPriceIDs leaves the plan without any billing price configured.
func (b *PlanBuilder) WithoutPriceIDs() *PlanBuilder {
	b.plan.BillingPriceIDs = map[domain.BillingInterval]string{}
	return b
}

func (b *PlanBuilder) Build() *domain.Plan {
	return b.plan
}

// SubscriptionStateBuilder provides fluent API for building subscription snapshots.
type SubscriptionStateBuilder struct {
	state *domain.SubscriptionState
}

// NewSubscriptionState creates an ACTIVE monthly subscription with an
// external billing subscription.
func NewSubscriptionState(accountID string, current *domain.Plan) *SubscriptionStateBuilder {
	return &SubscriptionStateBuilder{
		state: &domain.SubscriptionState{
			AccountID:                      accountID,
			CurrentPlanID:                  current.ID,
			CurrentPlanPrice:               current.Price,
			Status:                         domain.SubscriptionStatusActive,
			BillingInterval:                domain.BillingIntervalMonthly,
			HasExternalBillingSubscription: true,
		},
	}
}

func (b *SubscriptionStateBuilder) WithStatus(status domain.SubscriptionStatus) *SubscriptionStateBuilder {
	b.state.Status = status
	return b
}

func (b *SubscriptionStateBuilder) WithoutExternalSubscription() *SubscriptionStateBuilder {
	b.state.HasExternalBillingSubscription = false
	return b
}

func (b *SubscriptionStateBuilder) Build() *domain.SubscriptionState {
	return b.state
}
