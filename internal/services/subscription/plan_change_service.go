package subscription

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/pkg/observability"
)

// Service implements serviceports.PlanChangeService. It only classifies the
// change; the billing provider is called by whoever consumes the decision.
type Service struct {
	db     ports.DBPort
	plans  ports.PlanRepository
	states ports.SubscriptionStateRepository
	logger ports.Logger
}

// NewService creates a new plan change service
func NewService(
	db ports.DBPort,
	plans ports.PlanRepository,
	states ports.SubscriptionStateRepository,
	logger ports.Logger,
) *Service {
	return &Service{
		db:     db,
		plans:  plans,
		states: states,
		logger: logger,
	}
}

// ResolvePlanChange loads the account's subscription and the target plan
func (s *Service) ResolvePlanChange(ctx context.Context, req *serviceports.PlanChangeRequest) (*domain.PlanChangeDecision, error) {
	if req.AccountID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "account_id is required").
			WithDetail("field", "account_id")
	}
	if req.TargetPlanID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "plan_id is required").
			WithDetail("field", "plan_id")
	}

	var (
		state *domain.SubscriptionState
		plan  *domain.Plan
	)
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if state, err = s.states.GetByAccountID(ctx, tx, req.AccountID); err != nil {
			return err
		}
		plan, err = s.plans.GetByID(ctx, tx, req.TargetPlanID)
		return err
	})
	if err != nil {
		s.logger.Warn("plan change lookup failed",
			ports.String("account_id", req.AccountID),
			ports.String("plan_id", req.TargetPlanID),
			ports.Err(err))
		return nil, err
	}

	decision, err := Resolve(state, plan, req.Interval)
	if err != nil {
		observability.RecordPlanChangeDecision(string(domain.GetErrorCode(err)))
		s.logger.Info("plan change rejected",
			ports.String("account_id", req.AccountID),
			ports.String("plan_id", req.TargetPlanID),
			ports.String("status", string(state.Status)),
			ports.Err(err))
		return nil, err
	}

	observability.RecordPlanChangeDecision(string(decision.Action))
	s.logger.Info("plan change resolved",
		ports.String("account_id", req.AccountID),
		ports.String("current_plan_id", state.CurrentPlanID),
		ports.String("plan_id", decision.TargetPlanID),
		ports.String("action", string(decision.Action)),
		ports.String("price_delta", decision.PriceDelta.String()))

	return decision, nil
}

// ListPlans returns the plan catalogue
func (s *Service) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	return s.plans.List(ctx, s.db.GetDB())
}
