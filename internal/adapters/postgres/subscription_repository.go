package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

const (
	planColumns = `id, name, price, billing_price_ids`

	getPlanSQL   = `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	listPlansSQL = `SELECT ` + planColumns + ` FROM plans WHERE is_active ORDER BY price, id`

	getSubscriptionStateSQL = `SELECT s.account_id, s.plan_id, p.price, s.status, s.billing_interval,
	s.external_subscription_id
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id
WHERE s.account_id = $1`
)

// PlanRepository implements ports.PlanRepository
type PlanRepository struct {
	db ports.DBPort
}

var _ ports.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db ports.DBPort) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetByID retrieves a plan by its ID
func (r *PlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	if db == nil {
		db = r.db.GetDB()
	}

	plan, err := scanPlan(db.QueryRow(ctx, getPlanSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewDomainError(domain.ErrorCodePlanNotFound, "plan not found").
			WithDetail("plan_id", id)
	}
	if err != nil {
		return nil, dbError("failed to load plan", err)
	}
	return plan, nil
}

// List returns active plans ordered by price
func (r *PlanRepository) List(ctx context.Context, db ports.DBTX) ([]*domain.Plan, error) {
	if db == nil {
		db = r.db.GetDB()
	}

	rows, err := db.Query(ctx, listPlansSQL)
	if err != nil {
		return nil, dbError("failed to list plans", err)
	}
	defer rows.Close()

	plans := make([]*domain.Plan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, dbError(fmt.Sprintf("failed to read plan %d", len(plans)), err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate plans", err)
	}
	return plans, nil
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		plan     domain.Plan
		price    pgtype.Numeric
		priceIDs []byte
	)
	if err := row.Scan(&plan.ID, &plan.Name, &price, &priceIDs); err != nil {
		return nil, err
	}

	var err error
	if plan.Price, err = pgNumericToDecimal(price); err != nil {
		return nil, err
	}

	plan.BillingPriceIDs = map[domain.BillingInterval]string{}
	if len(priceIDs) > 0 {
		if err := json.Unmarshal(priceIDs, &plan.BillingPriceIDs); err != nil {
			return nil, fmt.Errorf("unmarshal billing price ids: %w", err)
		}
	}
	return &plan, nil
}

// SubscriptionStateRepository implements ports.SubscriptionStateRepository.
// The current plan price is read from the plan the subscription points at.
type SubscriptionStateRepository struct {
	db ports.DBPort
}

var _ ports.SubscriptionStateRepository = (*SubscriptionStateRepository)(nil)

// NewSubscriptionStateRepository creates a new subscription state repository
func NewSubscriptionStateRepository(db ports.DBPort) *SubscriptionStateRepository {
	return &SubscriptionStateRepository{db: db}
}

// GetByAccountID returns the subscription snapshot of an account
func (r *SubscriptionStateRepository) GetByAccountID(ctx context.Context, db ports.DBTX, accountID string) (*domain.SubscriptionState, error) {
	if db == nil {
		db = r.db.GetDB()
	}

	var (
		state      domain.SubscriptionState
		price      pgtype.Numeric
		status     string
		interval   string
		externalID pgtype.Text
	)
	err := db.QueryRow(ctx, getSubscriptionStateSQL, accountID).Scan(
		&state.AccountID,
		&state.CurrentPlanID,
		&price,
		&status,
		&interval,
		&externalID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewDomainError(domain.ErrorCodeSubscriptionNotFound, "subscription not found").
			WithDetail("account_id", accountID)
	}
	if err != nil {
		return nil, dbError("failed to load subscription", err)
	}

	if state.CurrentPlanPrice, err = pgNumericToDecimal(price); err != nil {
		return nil, dbError("failed to read plan price", err)
	}
	state.Status = domain.SubscriptionStatus(status)
	state.BillingInterval = domain.BillingInterval(interval)
	state.HasExternalBillingSubscription = externalID.Valid && externalID.String != ""

	return &state, nil
}
