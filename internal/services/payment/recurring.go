package payment

import (
	"time"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

// GenerateNext builds the next occurrence of a recurring payment.
//
// The due date advances by the frequency with end-of-month clamping. The new
// record starts fresh (PENDING, or AWAITING_INVOICE when an invoice is
// required) with no payment date, documents or invoice timestamp, and links
// back to its parent. Everything else is copied. The input is not modified.
func GenerateNext(p *domain.Payment, id string, now time.Time) (*domain.Payment, error) {
	if !p.IsRecurring {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "payment is not recurring").
			WithDetail("payment_id", p.ID)
	}
	if p.RecurringFrequency == nil || !p.RecurringFrequency.IsValid() {
		err := domain.NewDomainError(domain.ErrorCodeInvalidFrequency, "recurring payment has no valid frequency").
			WithDetail("payment_id", p.ID)
		if p.RecurringFrequency != nil {
			err.WithDetail("frequency", string(*p.RecurringFrequency))
		}
		return nil, err
	}

	next := p.Clone()
	next.ID = id
	next.DueDate = timeutil.AddMonthsClamped(timeutil.StartOfDay(p.DueDate), p.RecurringFrequency.Months())
	next.Status = domain.PaymentStatusPending
	if p.RequiresInvoice {
		next.Status = domain.PaymentStatusAwaitingInvoice
	}
	next.PaymentDate = nil
	next.InvoiceAttachedAt = nil
	next.AttachedDocuments = []domain.Document{}
	parentID := p.ID
	next.ParentPaymentID = &parentID
	next.Version = 0
	next.CreatedAt = now
	next.UpdatedAt = now

	return next, nil
}
