package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kevin07696/clientledger/internal/domain"
)

func TestIsOverdue(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   domain.PaymentStatus
		now      time.Time
		expected bool
	}{
		{"pending before due date", domain.PaymentStatusPending, time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), false},
		{"pending on due date late in the day", domain.PaymentStatusPending, time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC), false},
		{"pending the day after", domain.PaymentStatusPending, time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC), true},
		{"ready to pay long past due", domain.PaymentStatusReadyToPay, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"awaiting validation past due", domain.PaymentStatusAwaitingValidation, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{"legacy overdue status past due", domain.PaymentStatusOverdue, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{"legacy overdue status not yet due", domain.PaymentStatusOverdue, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"paid past due", domain.PaymentStatusPaid, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"canceled past due", domain.PaymentStatusCanceled, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.Payment{DueDate: due, Status: tt.status}
			assert.Equal(t, tt.expected, IsOverdue(p, tt.now))
			assert.Equal(t, tt.status, p.Status, "stored status never rewritten")
		})
	}
}

func TestIsOverdue_NonUTCClock(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &domain.Payment{DueDate: due, Status: domain.PaymentStatusPending}

	// 01:00 on the 11th in UTC+2 is still the 10th in UTC
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.False(t, IsOverdue(p, time.Date(2024, 3, 11, 1, 0, 0, 0, loc)))
}

// An OFFICE, non-recurring payment without invoice requirement, due
// 2024-01-01 and still PENDING, is overdue on 2024-06-01.
func TestScenario_OfficePaymentOverdue(t *testing.T) {
	p := &domain.Payment{
		ID:          "office-rent",
		PaymentType: domain.PaymentTypeOffice,
		Amount:      decimal.NewFromInt(1200),
		DueDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:      domain.PaymentStatusPending,
	}

	assert.True(t, IsOverdue(p, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 152, DaysOverdue(p, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)))
}

func TestDaysOverdue_NotOverdue(t *testing.T) {
	p := &domain.Payment{DueDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.PaymentStatusPaid}
	assert.Zero(t, DaysOverdue(p, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))

	p.Status = domain.PaymentStatusPending
	assert.Zero(t, DaysOverdue(p, time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, DaysOverdue(p, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestHasRequiredEvidence(t *testing.T) {
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payment  domain.Payment
		expected bool
	}{
		{
			name:     "invoice not required",
			payment:  domain.Payment{},
			expected: true,
		},
		{
			name:     "required and absent",
			payment:  domain.Payment{RequiresInvoice: true},
			expected: false,
		},
		{
			name: "required with only non-invoice documents",
			payment: domain.Payment{
				RequiresInvoice:   true,
				InvoiceAttachedAt: &at,
				AttachedDocuments: []domain.Document{{ID: "d1"}},
			},
			expected: false,
		},
		{
			name: "required with invoice but no timestamp",
			payment: domain.Payment{
				RequiresInvoice:   true,
				AttachedDocuments: []domain.Document{{ID: "d1", IsInvoice: true}},
			},
			expected: false,
		},
		{
			name: "required and present",
			payment: domain.Payment{
				RequiresInvoice:   true,
				InvoiceAttachedAt: &at,
				AttachedDocuments: []domain.Document{{ID: "d1"}, {ID: "d2", IsInvoice: true}},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasRequiredEvidence(&tt.payment))
		})
	}
}
