package subscription

import (
	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/internal/domain"
)

// ResolveAction classifies a plan change by the account's subscription state
// and the target plan's price. Trialing accounts, and accounts without an
// external billing subscription, always go through checkout.
func ResolveAction(current *domain.SubscriptionState, targetPrice decimal.Decimal) (domain.PlanChangeAction, error) {
	if current.IsTrialing() || !current.HasExternalBillingSubscription {
		return domain.PlanChangeRequiresCheckout, nil
	}

	switch targetPrice.Cmp(current.CurrentPlanPrice) {
	case 1:
		return domain.PlanChangeInPlaceUpgrade, nil
	case -1:
		return domain.PlanChangeInPlaceDowngrade, nil
	default:
		return "", domain.NewDomainError(domain.ErrorCodeNoOpSamePlan, "target plan is the currently active plan").
			WithDetail("current_price", current.CurrentPlanPrice.String()).
			WithDetail("target_price", targetPrice.String())
	}
}

// Resolve decides how to move the account to target. An empty interval
// falls back to the account's current billing interval. Checkout against a
// plan without a price identifier for the interval fails with
// PLAN_NOT_BILLABLE.
func Resolve(current *domain.SubscriptionState, target *domain.Plan, interval domain.BillingInterval) (*domain.PlanChangeDecision, error) {
	if interval == "" {
		interval = current.BillingInterval
	}
	if !interval.IsValid() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "unsupported billing interval").
			WithDetail("interval", string(interval))
	}

	action, err := ResolveAction(current, target.Price)
	if err != nil {
		if de, ok := err.(*domain.DomainError); ok {
			de.WithDetail("plan_id", target.ID)
		}
		return nil, err
	}

	priceID := target.PriceIDFor(interval)
	if action == domain.PlanChangeRequiresCheckout && priceID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodePlanNotBillable, "target plan has no billing price configured").
			WithDetail("plan_id", target.ID).
			WithDetail("interval", string(interval))
	}

	return &domain.PlanChangeDecision{
		Action:       action,
		TargetPlanID: target.ID,
		PriceID:      priceID,
		PriceDelta:   target.Price.Sub(current.CurrentPlanPrice),
	}, nil
}
