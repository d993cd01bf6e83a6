package payment

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/handlers/httputil"
	"github.com/kevin07696/clientledger/internal/services/ports"
)

// Handler serves the payment lifecycle API
type Handler struct {
	service ports.PaymentService
	logger  *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service ports.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes mounts the payment endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.CreatePayment)
		r.Get("/", h.ListPayments)
		r.Get("/{paymentID}", h.GetPayment)
		r.Post("/{paymentID}/transitions", h.Transition)
		r.Post("/{paymentID}/documents", h.AttachDocument)
		r.Delete("/{paymentID}/documents/{documentID}", h.DetachDocument)
	})
}

// CreatePayment handles POST /payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var body CreatePaymentRequest
	if err := httputil.DecodeJSON(r, &body, false); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	req, err := body.toService()
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	view, err := h.service.CreatePayment(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/payments/"+view.Payment.ID)
	httputil.WriteJSON(w, http.StatusCreated, toPaymentResponse(view))
}

// GetPayment handles GET /payments/{paymentID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(view))
}

// ListPayments handles GET /payments?firm_id=&client_id=&status=&overdue=&limit=&offset=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	req, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	views, err := h.service.ListPayments(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	resp := ListPaymentsResponse{Payments: make([]*PaymentResponse, 0, len(views)), Count: len(views)}
	for _, v := range views {
		resp.Payments = append(resp.Payments, toPaymentResponse(v))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Transition handles POST /payments/{paymentID}/transitions
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if err := httputil.DecodeJSON(r, &body, false); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	resp, err := h.service.Transition(r.Context(), body.toService(chi.URLParam(r, "paymentID")))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(resp))
}

// AttachDocument handles POST /payments/{paymentID}/documents
func (h *Handler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	var body AttachDocumentRequest
	if err := httputil.DecodeJSON(r, &body, false); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	resp, err := h.service.AttachDocument(r.Context(), &ports.AttachDocumentRequest{
		PaymentID:  chi.URLParam(r, "paymentID"),
		DocumentID: body.DocumentID,
		Name:       body.Name,
		IsInvoice:  body.IsInvoice,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTransitionResponse(resp))
}

// DetachDocument handles DELETE /payments/{paymentID}/documents/{documentID}
func (h *Handler) DetachDocument(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.DetachDocument(r.Context(), chi.URLParam(r, "paymentID"), chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(view))
}

func parseListQuery(r *http.Request) (*ports.ListPaymentsRequest, error) {
	q := r.URL.Query()
	req := &ports.ListPaymentsRequest{
		FirmID:   q.Get("firm_id"),
		ClientID: q.Get("client_id"),
	}

	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			status := domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
			if status == "" {
				continue
			}
			if !status.IsValid() {
				return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "unknown status filter").
					WithDetail("status", string(status))
			}
			req.Statuses = append(req.Statuses, status)
		}
	}

	if v := q.Get("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "overdue must be a boolean").
				WithDetail("overdue", v)
		}
		req.OverdueOnly = overdue
	}

	var err error
	if req.Limit, err = parseInt32(q.Get("limit"), "limit"); err != nil {
		return nil, err
	}
	if req.Offset, err = parseInt32(q.Get("offset"), "offset"); err != nil {
		return nil, err
	}
	return req, nil
}

func parseInt32(raw, field string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return 0, domain.NewDomainError(domain.ErrorCodeValidationFailed, field+" must be a non-negative integer").
			WithDetail(field, raw)
	}
	return int32(n), nil
}
