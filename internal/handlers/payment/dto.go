package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/internal/domain"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
)

const dateLayout = "2006-01-02"

// CreatePaymentRequest is the body of POST /api/v1/payments
type CreatePaymentRequest struct {
	ClientID             *string `json:"client_id" validate:"omitempty,max=64"`
	RecurringFrequency   *string `json:"recurring_frequency" validate:"omitempty,oneof=MONTHLY QUARTERLY SEMI_ANNUALLY YEARLY"`
	FirmID               string  `json:"firm_id" validate:"required,max=64"`
	PaymentType          string  `json:"payment_type" validate:"required,oneof=CLIENT OFFICE"`
	Title                string  `json:"title" validate:"required,max=200"`
	Description          string  `json:"description" validate:"max=2000"`
	Amount               string  `json:"amount" validate:"required,numeric"`
	Currency             string  `json:"currency" validate:"required,len=3,uppercase"`
	DueDate              string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	RequiresInvoice      bool    `json:"requires_invoice"`
	StartAwaitingInvoice bool    `json:"start_awaiting_invoice"`
	IsRecurring          bool    `json:"is_recurring"`
}

func (r *CreatePaymentRequest) toService() (*serviceports.CreatePaymentRequest, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "amount is not a decimal number").
			WithDetail("amount", r.Amount)
	}
	dueDate, err := time.Parse(dateLayout, r.DueDate)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "due_date must be YYYY-MM-DD").
			WithDetail("due_date", r.DueDate)
	}

	req := &serviceports.CreatePaymentRequest{
		FirmID:               r.FirmID,
		PaymentType:          domain.PaymentType(r.PaymentType),
		ClientID:             r.ClientID,
		Title:                r.Title,
		Description:          r.Description,
		Amount:               amount,
		Currency:             r.Currency,
		DueDate:              dueDate,
		RequiresInvoice:      r.RequiresInvoice,
		StartAwaitingInvoice: r.StartAwaitingInvoice,
		IsRecurring:          r.IsRecurring,
	}
	if r.RecurringFrequency != nil {
		f := domain.RecurringFrequency(*r.RecurringFrequency)
		req.RecurringFrequency = &f
	}
	return req, nil
}

// EvidenceRequest is the optional evidence of a transition
type EvidenceRequest struct {
	Kind       string `json:"kind" validate:"omitempty,oneof=DOCUMENT_ATTACHED PROOF_OF_PAYMENT APPROVAL"`
	DocumentID string `json:"document_id" validate:"max=64"`
	ActorID    string `json:"actor_id" validate:"max=64"`
}

// TransitionRequest is the body of POST /api/v1/payments/{id}/transitions
type TransitionRequest struct {
	ExpectedVersion *int64           `json:"expected_version" validate:"omitempty,min=0"`
	Evidence        *EvidenceRequest `json:"evidence"`
	TargetStatus    string           `json:"target_status" validate:"required,oneof=PENDING AWAITING_INVOICE READY_TO_PAY AWAITING_VALIDATION PAID OVERDUE CANCELED"`
}

func (r *TransitionRequest) toService(paymentID string) *serviceports.TransitionRequest {
	req := &serviceports.TransitionRequest{
		PaymentID:       paymentID,
		TargetStatus:    domain.PaymentStatus(r.TargetStatus),
		ExpectedVersion: r.ExpectedVersion,
	}
	if r.Evidence != nil {
		req.Evidence = domain.Evidence{
			Kind:       domain.EvidenceKind(r.Evidence.Kind),
			DocumentID: r.Evidence.DocumentID,
			ActorID:    r.Evidence.ActorID,
		}
	}
	return req
}

// AttachDocumentRequest is the body of POST /api/v1/payments/{id}/documents
type AttachDocumentRequest struct {
	DocumentID string `json:"document_id" validate:"max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	IsInvoice  bool   `json:"is_invoice"`
}

// PaymentResponse is a payment with its read-time derived fields
type PaymentResponse struct {
	*domain.Payment
	AllowedNext []domain.PaymentStatus `json:"allowed_next"`
	DaysOverdue int                    `json:"days_overdue"`
	IsOverdue   bool                   `json:"is_overdue"`
}

// TransitionResponse reports a transition or attach outcome
type TransitionResponse struct {
	Payment   *PaymentResponse `json:"payment"`
	Generated *PaymentResponse `json:"generated,omitempty"`
	Changed   bool             `json:"changed"`
}

// ListPaymentsResponse wraps a page of payments
type ListPaymentsResponse struct {
	Payments []*PaymentResponse `json:"payments"`
	Count    int                `json:"count"`
}

func toPaymentResponse(v *serviceports.PaymentView) *PaymentResponse {
	if v == nil {
		return nil
	}
	allowed := v.AllowedNext
	if allowed == nil {
		allowed = []domain.PaymentStatus{}
	}
	return &PaymentResponse{
		Payment:     v.Payment,
		AllowedNext: allowed,
		DaysOverdue: v.DaysOverdue,
		IsOverdue:   v.IsOverdue,
	}
}

func toTransitionResponse(r *serviceports.TransitionResponse) *TransitionResponse {
	return &TransitionResponse{
		Payment:   toPaymentResponse(r.Payment),
		Generated: toPaymentResponse(r.Generated),
		Changed:   r.Changed,
	}
}
