package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/pkg/timeutil"
)

// PaymentType distinguishes obligations owed by/to a client from internal office expenses
type PaymentType string

const (
	PaymentTypeClient PaymentType = "CLIENT"
	PaymentTypeOffice PaymentType = "OFFICE"
)

// IsValid reports whether the type is a known payment type
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeClient || t == PaymentTypeOffice
}

// PaymentStatus is the stored lifecycle status of a payment.
// OVERDUE exists for legacy rows only; overdue is derived at read time.
type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "PENDING"
	PaymentStatusAwaitingInvoice    PaymentStatus = "AWAITING_INVOICE"
	PaymentStatusReadyToPay         PaymentStatus = "READY_TO_PAY"
	PaymentStatusAwaitingValidation PaymentStatus = "AWAITING_VALIDATION"
	PaymentStatusPaid               PaymentStatus = "PAID"
	PaymentStatusOverdue            PaymentStatus = "OVERDUE"
	PaymentStatusCanceled           PaymentStatus = "CANCELED"
)

// IsValid reports whether the status is one of the seven known statuses
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusAwaitingInvoice,
		PaymentStatusReadyToPay,
		PaymentStatusAwaitingValidation,
		PaymentStatusPaid,
		PaymentStatusOverdue,
		PaymentStatusCanceled:
		return true
	}
	return false
}

// IsTerminal returns true for PAID and CANCELED
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCanceled
}

// RecurringFrequency defines how far apart recurring occurrences are due
type RecurringFrequency string

const (
	FrequencyMonthly      RecurringFrequency = "MONTHLY"
	FrequencyQuarterly    RecurringFrequency = "QUARTERLY"
	FrequencySemiAnnually RecurringFrequency = "SEMI_ANNUALLY"
	FrequencyYearly       RecurringFrequency = "YEARLY"
)

// Months returns the number of calendar months between occurrences,
// or 0 for an unknown frequency
func (f RecurringFrequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnually:
		return 6
	case FrequencyYearly:
		return 12
	default:
		return 0
	}
}

// IsValid reports whether the frequency is known
func (f RecurringFrequency) IsValid() bool {
	return f.Months() > 0
}

// Document is a reference to an attached file. File bytes and content type
// live in the document store; only the invoice flag and timestamp matter here.
type Document struct {
	AttachedAt time.Time `json:"attached_at"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsInvoice  bool      `json:"is_invoice"`
}

// Payment is a sum owed, evidenced and reconciled over time.
// Status must only change through the payment state machine.
type Payment struct {
	DueDate            time.Time           `json:"due_date"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	PaymentDate        *time.Time          `json:"payment_date"`
	InvoiceAttachedAt  *time.Time          `json:"invoice_attached_at"`
	ClientID           *string             `json:"client_id"`
	ParentPaymentID    *string             `json:"parent_payment_id"`
	RecurringFrequency *RecurringFrequency `json:"recurring_frequency"`
	Amount             decimal.Decimal     `json:"amount"`
	AttachedDocuments  []Document          `json:"attached_documents"`
	ID                 string              `json:"id"`
	FirmID             string              `json:"firm_id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Currency           string              `json:"currency"`
	PaymentType        PaymentType         `json:"payment_type"`
	Status             PaymentStatus       `json:"status"`
	Version            int64               `json:"version"`
	RequiresInvoice    bool                `json:"requires_invoice"`
	IsRecurring        bool                `json:"is_recurring"`
}

// NewPaymentParams carries the caller-supplied fields for a new payment
type NewPaymentParams struct {
	DueDate              time.Time
	ClientID             *string
	RecurringFrequency   *RecurringFrequency
	Amount               decimal.Decimal
	ID                   string
	FirmID               string
	Title                string
	Description          string
	Currency             string
	PaymentType          PaymentType
	RequiresInvoice      bool
	IsRecurring          bool
	StartAwaitingInvoice bool
}

// NewPayment validates the params and builds a payment in its initial status
func NewPayment(p NewPaymentParams, now time.Time) (*Payment, error) {
	status := PaymentStatusPending
	if p.RequiresInvoice && p.StartAwaitingInvoice {
		status = PaymentStatusAwaitingInvoice
	}

	payment := &Payment{
		ID:                 p.ID,
		FirmID:             p.FirmID,
		PaymentType:        p.PaymentType,
		ClientID:           p.ClientID,
		Title:              p.Title,
		Description:        p.Description,
		Amount:             p.Amount,
		Currency:           p.Currency,
		DueDate:            timeutil.StartOfDay(p.DueDate),
		Status:             status,
		RequiresInvoice:    p.RequiresInvoice,
		IsRecurring:        p.IsRecurring,
		RecurringFrequency: p.RecurringFrequency,
		AttachedDocuments:  []Document{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := payment.Validate(); err != nil {
		return nil, err
	}
	return payment, nil
}

// Validate checks the construction-time invariants
func (p *Payment) Validate() error {
	if p.ID == "" {
		return NewDomainError(ErrorCodeValidationMissingField, "id is required").WithDetail("field", "id")
	}
	if !p.PaymentType.IsValid() {
		return NewDomainError(ErrorCodeValidationFailed, "unknown payment type").
			WithDetail("payment_type", string(p.PaymentType))
	}
	hasClient := p.ClientID != nil && *p.ClientID != ""
	if p.PaymentType == PaymentTypeClient && !hasClient {
		return NewDomainError(ErrorCodeValidationMissingField, "client_id is required for CLIENT payments").
			WithDetail("field", "client_id")
	}
	if p.PaymentType == PaymentTypeOffice && p.ClientID != nil {
		return NewDomainError(ErrorCodeValidationFailed, "client_id must be absent for OFFICE payments").
			WithDetail("field", "client_id")
	}
	if !p.Amount.IsPositive() {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "amount must be positive").
			WithDetail("amount", p.Amount.String())
	}
	if p.DueDate.IsZero() {
		return NewDomainError(ErrorCodeValidationMissingField, "due_date is required").WithDetail("field", "due_date")
	}
	if p.IsRecurring && (p.RecurringFrequency == nil || !p.RecurringFrequency.IsValid()) {
		return NewDomainError(ErrorCodeInvalidFrequency, "recurring payment requires a valid frequency")
	}
	if !p.Status.IsValid() {
		return NewDomainError(ErrorCodeValidationFailed, "unknown status").WithDetail("status", string(p.Status))
	}
	if (p.PaymentDate != nil) != (p.Status == PaymentStatusPaid) {
		return NewDomainError(ErrorCodeValidationFailed, "payment_date must be set only when PAID")
	}
	return nil
}

// IsTerminal returns true if the payment can no longer change status
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// HasInvoiceDocument returns true if any attached document is flagged as the invoice
func (p *Payment) HasInvoiceDocument() bool {
	return p.invoiceDocumentCount() > 0
}

func (p *Payment) invoiceDocumentCount() int {
	n := 0
	for _, d := range p.AttachedDocuments {
		if d.IsInvoice {
			n++
		}
	}
	return n
}

// InvoiceDocumentCount returns how many attached documents are flagged as the invoice
func (p *Payment) InvoiceDocumentCount() int {
	return p.invoiceDocumentCount()
}

// FindDocument returns the index of the attached document with the given ID, or -1
func (p *Payment) FindDocument(documentID string) int {
	for i, d := range p.AttachedDocuments {
		if d.ID == documentID {
			return i
		}
	}
	return -1
}

// GetClientID safely retrieves the client ID
func (p *Payment) GetClientID() string {
	if p.ClientID != nil {
		return *p.ClientID
	}
	return ""
}

// Clone returns a deep copy so callers can derive a new snapshot without
// touching the original
func (p *Payment) Clone() *Payment {
	c := *p
	c.PaymentDate = cloneTime(p.PaymentDate)
	c.InvoiceAttachedAt = cloneTime(p.InvoiceAttachedAt)
	if p.ClientID != nil {
		id := *p.ClientID
		c.ClientID = &id
	}
	if p.ParentPaymentID != nil {
		id := *p.ParentPaymentID
		c.ParentPaymentID = &id
	}
	if p.RecurringFrequency != nil {
		f := *p.RecurringFrequency
		c.RecurringFrequency = &f
	}
	if p.AttachedDocuments != nil {
		c.AttachedDocuments = make([]Document, len(p.AttachedDocuments))
		copy(c.AttachedDocuments, p.AttachedDocuments)
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
