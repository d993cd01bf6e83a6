package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/internal/domain"
)

// CreatePaymentRequest contains parameters for creating a payment
type CreatePaymentRequest struct {
	DueDate              time.Time
	ClientID             *string
	RecurringFrequency   *domain.RecurringFrequency
	Amount               decimal.Decimal
	FirmID               string
	Title                string
	Description          string
	Currency             string
	PaymentType          domain.PaymentType
	RequiresInvoice      bool
	StartAwaitingInvoice bool
	IsRecurring          bool
}

// TransitionRequest asks for a status change
type TransitionRequest struct {
	// ExpectedVersion, when set, rejects the request with CONCURRENCY_CONFLICT
	// if the stored payment has moved on
	ExpectedVersion *int64
	Evidence        domain.Evidence
	PaymentID       string
	TargetStatus    domain.PaymentStatus
}

// AttachDocumentRequest attaches a document reference to a payment
type AttachDocumentRequest struct {
	PaymentID  string
	DocumentID string
	Name       string
	IsInvoice  bool
}

// ListPaymentsRequest filters payments of a firm
type ListPaymentsRequest struct {
	// OverdueOnly keeps only payments IsOverdue reports as overdue at request time
	OverdueOnly bool
	FirmID      string
	ClientID    string
	Statuses    []domain.PaymentStatus
	Limit       int32
	Offset      int32
}

// PaymentView is a payment plus its read-time derived fields
type PaymentView struct {
	Payment     *domain.Payment
	AllowedNext []domain.PaymentStatus
	DaysOverdue int
	IsOverdue   bool
}

// TransitionResponse reports the outcome of a transition or attach
type TransitionResponse struct {
	Payment *PaymentView
	// Generated is the next occurrence created when a recurring payment was paid
	Generated *PaymentView
	Changed   bool
}

// PaymentService defines the port for payment lifecycle operations
type PaymentService interface {
	// CreatePayment validates and stores a new payment
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentView, error)

	// GetPayment returns a payment with its derived overdue flag
	GetPayment(ctx context.Context, paymentID string) (*PaymentView, error)

	// ListPayments lists payments of a firm
	ListPayments(ctx context.Context, req *ListPaymentsRequest) ([]*PaymentView, error)

	// Transition applies a status change through the state machine
	Transition(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error)

	// AttachDocument attaches a document reference
	AttachDocument(ctx context.Context, req *AttachDocumentRequest) (*TransitionResponse, error)

	// DetachDocument removes a document reference
	DetachDocument(ctx context.Context, paymentID, documentID string) (*PaymentView, error)
}

// OverdueSweepResult summarizes one sweep run
type OverdueSweepResult struct {
	FirmID          string
	Scanned         int
	Overdue         int
	RemindersSent   int
	RemindersFailed int
}

// OverdueSweeper reports on overdue payments without changing them
type OverdueSweeper interface {
	Sweep(ctx context.Context, firmID string) (*OverdueSweepResult, error)
}
