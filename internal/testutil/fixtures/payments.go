package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/clientledger/internal/domain"
)

// PaymentBuilder provides fluent API for building test payments.
type PaymentBuilder struct {
	payment *domain.Payment
}

// NewPayment creates a CLIENT payment in PENDING with sensible defaults.
func NewPayment() *PaymentBuilder {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	return &PaymentBuilder{
		payment: &domain.Payment{
			ID:                uuid.NewString(),
			FirmID:            "firm-1",
			PaymentType:       domain.PaymentTypeClient,
			ClientID:          StringPtr("client-1"),
			Title:             "Monthly bookkeeping",
			Amount:            decimal.NewFromInt(450),
			Currency:          "EUR",
			DueDate:           Date(2024, 3, 10),
			Status:            domain.PaymentStatusPending,
			AttachedDocuments: []domain.Document{},
			CreatedAt:         created,
			UpdatedAt:         created,
		},
	}
}

func (b *PaymentBuilder) WithID(id string) *PaymentBuilder {
	b.payment.ID = id
	return b
}

func (b *PaymentBuilder) WithFirmID(firmID string) *PaymentBuilder {
	b.payment.FirmID = firmID
	return b
}

// AsOffice turns the payment into an OFFICE payment without a client.
func (b *PaymentBuilder) AsOffice() *PaymentBuilder {
	b.payment.PaymentType = domain.PaymentTypeOffice
	b.payment.ClientID = nil
	return b
}

func (b *PaymentBuilder) WithClientID(clientID string) *PaymentBuilder {
	b.payment.ClientID = StringPtr(clientID)
	return b
}

func (b *PaymentBuilder) WithAmount(amount string) *PaymentBuilder {
	b.payment.Amount = decimal.RequireFromString(amount)
	return b
}

func (b *PaymentBuilder) WithDueDate(due time.Time) *PaymentBuilder {
	b.payment.DueDate = due
	return b
}

// WithStatus sets the status. PAID also gets a payment date on the due date.
func (b *PaymentBuilder) WithStatus(status domain.PaymentStatus) *PaymentBuilder {
	b.payment.Status = status
	if status == domain.PaymentStatusPaid && b.payment.PaymentDate == nil {
		b.payment.PaymentDate = TimePtr(b.payment.DueDate)
	}
	return b
}

func (b *PaymentBuilder) RequiringInvoice() *PaymentBuilder {
	b.payment.RequiresInvoice = true
	return b
}

// WithInvoice attaches an invoice document at the given instant.
func (b *PaymentBuilder) WithInvoice(documentID string, at time.Time) *PaymentBuilder {
	b.payment.AttachedDocuments = append(b.payment.AttachedDocuments, domain.Document{
		ID:         documentID,
		Name:       "invoice.pdf",
		IsInvoice:  true,
		AttachedAt: at,
	})
	if b.payment.InvoiceAttachedAt == nil {
		b.payment.InvoiceAttachedAt = TimePtr(at)
	}
	return b
}

// WithDocument attaches a non-invoice document.
func (b *PaymentBuilder) WithDocument(documentID string, at time.Time) *PaymentBuilder {
	b.payment.AttachedDocuments = append(b.payment.AttachedDocuments, domain.Document{
		ID:         documentID,
		Name:       "receipt.pdf",
		AttachedAt: at,
	})
	return b
}

func (b *PaymentBuilder) Recurring(freq domain.RecurringFrequency) *PaymentBuilder {
	b.payment.IsRecurring = true
	b.payment.RecurringFrequency = FrequencyPtr(freq)
	return b
}

func (b *PaymentBuilder) WithVersion(version int64) *PaymentBuilder {
	b.payment.Version = version
	return b
}

func (b *PaymentBuilder) Build() *domain.Payment {
	return b.payment
}
