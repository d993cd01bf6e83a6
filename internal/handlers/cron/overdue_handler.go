package cron

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/handlers/httputil"
	"github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/pkg/resilience"
)

// OverdueHandler handles cron job endpoints for the overdue sweep
type OverdueHandler struct {
	sweeper    ports.OverdueSweeper
	logger     *zap.Logger
	timeouts   *resilience.TimeoutConfig
	cronSecret string // Secret token for authenticating cron requests
}

// NewOverdueHandler creates a new overdue cron handler
func NewOverdueHandler(
	sweeper ports.OverdueSweeper,
	logger *zap.Logger,
	timeouts *resilience.TimeoutConfig,
	cronSecret string,
) *OverdueHandler {
	return &OverdueHandler{
		sweeper:    sweeper,
		logger:     logger,
		timeouts:   timeouts,
		cronSecret: cronSecret,
	}
}

// OverdueSweepRequest is the optional body of POST /cron/overdue-sweep
type OverdueSweepRequest struct {
	FirmID string `json:"firm_id" validate:"max=64"`
}

// OverdueSweepResponse reports the sweep outcome
type OverdueSweepResponse struct {
	FirmID          string `json:"firm_id,omitempty"`
	ProcessedAt     string `json:"processed_at"`
	Scanned         int    `json:"scanned"`
	Overdue         int    `json:"overdue"`
	RemindersSent   int    `json:"reminders_sent"`
	RemindersFailed int    `json:"reminders_failed"`
	Success         bool   `json:"success"`
}

// Routes mounts the cron endpoints
func (h *OverdueHandler) Routes(r chi.Router) {
	r.Post("/overdue-sweep", h.SweepOverdue)
	r.Get("/health", h.HealthCheck)
}

// SweepOverdue handles POST /cron/overdue-sweep. It is called by an external
// scheduler in deployments that disable the in-process one.
func (h *OverdueHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Overdue sweep triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request", zap.String("remote_addr", r.RemoteAddr))
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error: httputil.ErrorBody{Code: "UNAUTHORIZED", Message: "unauthorized"},
		})
		return
	}

	var req OverdueSweepRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	// The sweep runs to completion even if the caller disconnects
	ctx, cancel := h.timeouts.CronContext(context.WithoutCancel(r.Context()))
	defer cancel()

	result, err := h.sweeper.Sweep(ctx, req.FirmID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	resp := OverdueSweepResponse{
		FirmID:          result.FirmID,
		Scanned:         result.Scanned,
		Overdue:         result.Overdue,
		RemindersSent:   result.RemindersSent,
		RemindersFailed: result.RemindersFailed,
		Success:         result.RemindersFailed == 0,
		ProcessedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusPartialContent
	}
	httputil.WriteJSON(w, status, resp)
}

// authenticateRequest accepts the secret in X-Cron-Secret or as a bearer token
func (h *OverdueHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	if secretEqual(r.Header.Get("X-Cron-Secret"), h.cronSecret) {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && secretEqual(token, h.cronSecret)
}

func secretEqual(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// HealthCheck handles GET /cron/health for monitoring
func (h *OverdueHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
