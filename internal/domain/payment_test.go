package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func freqPtr(f RecurringFrequency) *RecurringFrequency { return &f }

func validParams() NewPaymentParams {
	return NewPaymentParams{
		ID:          "pay-1",
		FirmID:      "firm-1",
		PaymentType: PaymentTypeClient,
		ClientID:    strPtr("client-1"),
		Title:       "Monthly bookkeeping",
		Amount:      decimal.NewFromInt(100),
		Currency:    "EUR",
		DueDate:     time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC),
	}
}

func TestNewPayment_Valid(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	p, err := NewPayment(validParams(), now)
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), p.DueDate, "due date normalized to midnight UTC")
	assert.Nil(t, p.PaymentDate)
	assert.Nil(t, p.InvoiceAttachedAt)
	assert.NotNil(t, p.AttachedDocuments)
	assert.Empty(t, p.AttachedDocuments)
	assert.Equal(t, now, p.CreatedAt)
}

func TestNewPayment_StartAwaitingInvoice(t *testing.T) {
	params := validParams()
	params.RequiresInvoice = true
	params.StartAwaitingInvoice = true

	p, err := NewPayment(params, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusAwaitingInvoice, p.Status)

	// Ignored without RequiresInvoice
	params.RequiresInvoice = false
	p, err = NewPayment(params, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, p.Status)
}

func TestNewPayment_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewPaymentParams)
		code   ErrorCode
	}{
		{
			name:   "missing id",
			mutate: func(p *NewPaymentParams) { p.ID = "" },
			code:   ErrorCodeValidationMissingField,
		},
		{
			name:   "unknown type",
			mutate: func(p *NewPaymentParams) { p.PaymentType = "VENDOR" },
			code:   ErrorCodeValidationFailed,
		},
		{
			name:   "client payment without client",
			mutate: func(p *NewPaymentParams) { p.ClientID = nil },
			code:   ErrorCodeValidationMissingField,
		},
		{
			name:   "client payment with empty client",
			mutate: func(p *NewPaymentParams) { p.ClientID = strPtr("") },
			code:   ErrorCodeValidationMissingField,
		},
		{
			name:   "office payment with client",
			mutate: func(p *NewPaymentParams) { p.PaymentType = PaymentTypeOffice },
			code:   ErrorCodeValidationFailed,
		},
		{
			name:   "zero amount",
			mutate: func(p *NewPaymentParams) { p.Amount = decimal.Zero },
			code:   ErrorCodeValidationAmountInvalid,
		},
		{
			name:   "negative amount",
			mutate: func(p *NewPaymentParams) { p.Amount = decimal.NewFromInt(-5) },
			code:   ErrorCodeValidationAmountInvalid,
		},
		{
			name:   "missing due date",
			mutate: func(p *NewPaymentParams) { p.DueDate = time.Time{} },
			code:   ErrorCodeValidationMissingField,
		},
		{
			name:   "recurring without frequency",
			mutate: func(p *NewPaymentParams) { p.IsRecurring = true },
			code:   ErrorCodeInvalidFrequency,
		},
		{
			name: "recurring with unknown frequency",
			mutate: func(p *NewPaymentParams) {
				p.IsRecurring = true
				p.RecurringFrequency = freqPtr("WEEKLY")
			},
			code: ErrorCodeInvalidFrequency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			p, err := NewPayment(params, time.Now().UTC())
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Equal(t, tt.code, GetErrorCode(err))
		})
	}
}

func TestNewPayment_OfficeWithoutClient(t *testing.T) {
	params := validParams()
	params.PaymentType = PaymentTypeOffice
	params.ClientID = nil

	p, err := NewPayment(params, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, p.GetClientID())
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		terminal bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusAwaitingInvoice, false},
		{PaymentStatusReadyToPay, false},
		{PaymentStatusAwaitingValidation, false},
		{PaymentStatusOverdue, false},
		{PaymentStatusPaid, true},
		{PaymentStatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
	assert.False(t, PaymentStatus("VOID").IsValid())
}

func TestRecurringFrequency_Months(t *testing.T) {
	assert.Equal(t, 1, FrequencyMonthly.Months())
	assert.Equal(t, 3, FrequencyQuarterly.Months())
	assert.Equal(t, 6, FrequencySemiAnnually.Months())
	assert.Equal(t, 12, FrequencyYearly.Months())
	assert.Equal(t, 0, RecurringFrequency("DAILY").Months())
	assert.False(t, RecurringFrequency("").IsValid())
}

func TestPayment_Validate_PaymentDateOnlyWhenPaid(t *testing.T) {
	p, err := NewPayment(validParams(), time.Now().UTC())
	require.NoError(t, err)

	paidOn := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	p.PaymentDate = &paidOn
	assert.True(t, IsDomainError(p.Validate(), ErrorCodeValidationFailed))

	p.Status = PaymentStatusPaid
	assert.NoError(t, p.Validate())

	p.PaymentDate = nil
	assert.True(t, IsDomainError(p.Validate(), ErrorCodeValidationFailed))
}

func TestPayment_DocumentHelpers(t *testing.T) {
	p := &Payment{
		AttachedDocuments: []Document{
			{ID: "d1", Name: "contract.pdf"},
			{ID: "d2", Name: "invoice.pdf", IsInvoice: true},
			{ID: "d3", Name: "invoice-corrected.pdf", IsInvoice: true},
		},
	}

	assert.True(t, p.HasInvoiceDocument())
	assert.Equal(t, 2, p.InvoiceDocumentCount())
	assert.Equal(t, 1, p.FindDocument("d2"))
	assert.Equal(t, -1, p.FindDocument("missing"))

	assert.False(t, (&Payment{}).HasInvoiceDocument())
}

func TestPayment_Clone_IsDeep(t *testing.T) {
	attachedAt := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	original := &Payment{
		ID:                 "pay-1",
		ClientID:           strPtr("client-1"),
		RecurringFrequency: freqPtr(FrequencyMonthly),
		InvoiceAttachedAt:  &attachedAt,
		AttachedDocuments:  []Document{{ID: "d1", IsInvoice: true}},
		Status:             PaymentStatusReadyToPay,
	}

	c := original.Clone()
	*c.ClientID = "client-2"
	*c.RecurringFrequency = FrequencyYearly
	*c.InvoiceAttachedAt = attachedAt.Add(time.Hour)
	c.AttachedDocuments[0].IsInvoice = false
	c.AttachedDocuments = append(c.AttachedDocuments, Document{ID: "d2"})
	c.Status = PaymentStatusPaid

	assert.Equal(t, "client-1", *original.ClientID)
	assert.Equal(t, FrequencyMonthly, *original.RecurringFrequency)
	assert.Equal(t, attachedAt, *original.InvoiceAttachedAt)
	assert.Len(t, original.AttachedDocuments, 1)
	assert.True(t, original.AttachedDocuments[0].IsInvoice)
	assert.Equal(t, PaymentStatusReadyToPay, original.Status)
}
