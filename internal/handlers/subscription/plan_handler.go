package subscription

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/handlers/httputil"
	"github.com/kevin07696/clientledger/internal/services/ports"
)

// PlanChangeRequest is the body of POST /accounts/{accountID}/plan-change
type PlanChangeRequest struct {
	TargetPlanID string `json:"target_plan_id" validate:"required,max=64"`
	Interval     string `json:"interval" validate:"omitempty,oneof=MONTHLY YEARLY"`
}

// PlansResponse lists the plan catalogue
type PlansResponse struct {
	Plans []*domain.Plan `json:"plans"`
}

// Handler serves plan listing and plan-change resolution
type Handler struct {
	service ports.PlanChangeService
	logger  *zap.Logger
}

// NewHandler creates a new plan handler
func NewHandler(service ports.PlanChangeService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes mounts the plan endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Get("/plans", h.ListPlans)
	r.Post("/accounts/{accountID}/plan-change", h.ResolvePlanChange)
}

// ListPlans handles GET /plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if plans == nil {
		plans = []*domain.Plan{}
	}
	httputil.WriteJSON(w, http.StatusOK, PlansResponse{Plans: plans})
}

// ResolvePlanChange handles POST /accounts/{accountID}/plan-change. The
// decision is returned to the caller, who talks to the billing provider.
func (h *Handler) ResolvePlanChange(w http.ResponseWriter, r *http.Request) {
	var body PlanChangeRequest
	if err := httputil.DecodeJSON(r, &body, false); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	decision, err := h.service.ResolvePlanChange(r.Context(), &ports.PlanChangeRequest{
		AccountID:    chi.URLParam(r, "accountID"),
		TargetPlanID: body.TargetPlanID,
		Interval:     domain.BillingInterval(body.Interval),
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}
