package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/clientledger/internal/domain"
)

func recurringPayment(freq domain.RecurringFrequency, due time.Time) *domain.Payment {
	p := clientPayment(domain.PaymentStatusPaid)
	p.IsRecurring = true
	p.RecurringFrequency = &freq
	p.DueDate = due
	paidOn := due
	p.PaymentDate = &paidOn
	p.Version = 4
	return p
}

func TestGenerateNext_DueDates(t *testing.T) {
	tests := []struct {
		name     string
		freq     domain.RecurringFrequency
		due      time.Time
		expected time.Time
	}{
		{"monthly end of january leap year", domain.FrequencyMonthly, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly end of january non-leap year", domain.FrequencyMonthly, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly mid month", domain.FrequencyMonthly, date(2024, 3, 10), date(2024, 4, 10)},
		{"monthly december rolls year", domain.FrequencyMonthly, date(2024, 12, 15), date(2025, 1, 15)},
		{"quarterly clamps to november", domain.FrequencyQuarterly, date(2024, 8, 31), date(2024, 11, 30)},
		{"semi-annually clamps to february", domain.FrequencySemiAnnually, date(2024, 8, 31), date(2025, 2, 28)},
		{"yearly from leap day", domain.FrequencyYearly, date(2024, 2, 29), date(2025, 2, 28)},
		{"yearly ordinary", domain.FrequencyYearly, date(2024, 4, 30), date(2025, 4, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := GenerateNext(recurringPayment(tt.freq, tt.due), "next-1", tt.due)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next.DueDate)
		})
	}
}

func TestGenerateNext_ResetsLifecycleFields(t *testing.T) {
	now := time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC)
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, requiresInvoice := range []bool{false, true} {
		p := withInvoice(recurringPayment(domain.FrequencyQuarterly, date(2024, 3, 10)), at)
		p.RequiresInvoice = requiresInvoice
		before := p.Clone()

		next, err := GenerateNext(p, "next-1", now)
		require.NoError(t, err)

		wantStatus := domain.PaymentStatusPending
		if requiresInvoice {
			wantStatus = domain.PaymentStatusAwaitingInvoice
		}
		assert.Equal(t, wantStatus, next.Status)
		assert.Equal(t, "next-1", next.ID)
		assert.Nil(t, next.PaymentDate)
		assert.Nil(t, next.InvoiceAttachedAt)
		assert.NotNil(t, next.AttachedDocuments)
		assert.Empty(t, next.AttachedDocuments)
		assert.Equal(t, int64(0), next.Version)
		assert.Equal(t, now, next.CreatedAt)
		require.NotNil(t, next.ParentPaymentID)
		assert.Equal(t, p.ID, *next.ParentPaymentID)

		// Copied verbatim
		assert.Equal(t, p.FirmID, next.FirmID)
		assert.Equal(t, p.PaymentType, next.PaymentType)
		assert.Equal(t, p.ClientID, next.ClientID)
		assert.NotSame(t, p.ClientID, next.ClientID)
		assert.True(t, p.Amount.Equal(next.Amount))
		assert.Equal(t, p.Currency, next.Currency)
		assert.Equal(t, p.Title, next.Title)
		assert.Equal(t, p.RequiresInvoice, next.RequiresInvoice)
		assert.True(t, next.IsRecurring)
		assert.Equal(t, domain.FrequencyQuarterly, *next.RecurringFrequency)

		assert.Equal(t, before, p, "generator is a pure factory")
	}
}

func TestGenerateNext_InvalidFrequency(t *testing.T) {
	p := recurringPayment(domain.FrequencyMonthly, date(2024, 1, 31))
	p.RecurringFrequency = nil

	next, err := GenerateNext(p, "next-1", time.Now().UTC())
	require.Error(t, err)
	assert.Nil(t, next)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidFrequency))

	unknown := domain.RecurringFrequency("BIWEEKLY")
	p.RecurringFrequency = &unknown
	_, err = GenerateNext(p, "next-1", time.Now().UTC())
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidFrequency))
}

func TestGenerateNext_NotRecurring(t *testing.T) {
	p := recurringPayment(domain.FrequencyMonthly, date(2024, 1, 31))
	p.IsRecurring = false

	_, err := GenerateNext(p, "next-1", time.Now().UTC())
	assert.True(t, domain.IsValidationError(err))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
