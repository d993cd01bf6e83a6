package domain

import (
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the account's subscription state as reported by billing
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "TRIALING"
	SubscriptionStatusActive     SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue    SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled   SubscriptionStatus = "CANCELED"
	SubscriptionStatusExpired    SubscriptionStatus = "EXPIRED"
	SubscriptionStatusIncomplete SubscriptionStatus = "INCOMPLETE"
)

// IsValid reports whether the status is known
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceled,
		SubscriptionStatusExpired,
		SubscriptionStatusIncomplete:
		return true
	}
	return false
}

// BillingInterval is the cadence a plan is billed at
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "MONTHLY"
	BillingIntervalYearly  BillingInterval = "YEARLY"
)

// IsValid reports whether the interval is known
func (i BillingInterval) IsValid() bool {
	return i == BillingIntervalMonthly || i == BillingIntervalYearly
}

// SubscriptionState is a read-only snapshot of an account's subscription
type SubscriptionState struct {
	CurrentPlanPrice               decimal.Decimal    `json:"current_plan_price"`
	AccountID                      string             `json:"account_id"`
	CurrentPlanID                  string             `json:"current_plan_id"`
	Status                         SubscriptionStatus `json:"status"`
	BillingInterval                BillingInterval    `json:"billing_interval"`
	HasExternalBillingSubscription bool               `json:"has_external_billing_subscription"`
}

// IsTrialing returns true while the account has not converted to a paid plan
func (s *SubscriptionState) IsTrialing() bool {
	return s.Status == SubscriptionStatusTrialing
}

// Plan is a purchasable tier. Price is the monthly list price.
type Plan struct {
	BillingPriceIDs map[BillingInterval]string `json:"billing_price_ids"`
	Price           decimal.Decimal            `json:"price"`
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
}

// PriceIDFor returns the external billing price identifier for the interval, or ""
func (p *Plan) PriceIDFor(interval BillingInterval) string {
	if p.BillingPriceIDs == nil {
		return ""
	}
	return p.BillingPriceIDs[interval]
}

// PlanChangeAction is the resolver's decision
type PlanChangeAction string

const (
	PlanChangeRequiresCheckout PlanChangeAction = "REQUIRES_CHECKOUT"
	PlanChangeInPlaceUpgrade   PlanChangeAction = "IN_PLACE_UPGRADE"
	PlanChangeInPlaceDowngrade PlanChangeAction = "IN_PLACE_DOWNGRADE"
)

// PlanChangeDecision tells the caller what to do with the billing provider.
// The provider itself is never called by the resolver.
type PlanChangeDecision struct {
	PriceDelta   decimal.Decimal  `json:"price_delta"`
	Action       PlanChangeAction `json:"action"`
	TargetPlanID string           `json:"target_plan_id"`
	PriceID      string           `json:"price_id,omitempty"`
}
