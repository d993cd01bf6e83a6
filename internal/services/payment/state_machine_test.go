package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

var allStatuses = []domain.PaymentStatus{
	domain.PaymentStatusPending,
	domain.PaymentStatusAwaitingInvoice,
	domain.PaymentStatusReadyToPay,
	domain.PaymentStatusAwaitingValidation,
	domain.PaymentStatusPaid,
	domain.PaymentStatusOverdue,
	domain.PaymentStatusCanceled,
}

var allEvidence = []domain.EvidenceKind{domain.EvidenceNone, domain.EvidenceDocumentAttached, domain.EvidenceProofOfPayment, domain.EvidenceApproval}

func fixedMachine(at time.Time) *StateMachine {
	n := 0
	return NewStateMachine(timeutil.FixedClock{At: at}, func() string {
		n++
		return "gen-" + string(rune('0'+n))
	})
}

func clientPayment(status domain.PaymentStatus) *domain.Payment {
	clientID := "client-1"
	return &domain.Payment{
		ID:                "pay-1",
		FirmID:            "firm-1",
		PaymentType:       domain.PaymentTypeClient,
		ClientID:          &clientID,
		Title:             "Quarterly VAT return",
		Amount:            decimal.NewFromInt(250),
		Currency:          "EUR",
		DueDate:           time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:            status,
		AttachedDocuments: []domain.Document{},
	}
}

func withInvoice(p *domain.Payment, at time.Time) *domain.Payment {
	p.AttachedDocuments = append(p.AttachedDocuments, domain.Document{ID: "inv-1", Name: "invoice.pdf", IsInvoice: true, AttachedAt: at})
	p.InvoiceAttachedAt = &at
	return p
}

func TestAttemptTransition_TerminalSourceAlwaysRejected(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC))

	for _, from := range []domain.PaymentStatus{domain.PaymentStatusPaid, domain.PaymentStatusCanceled} {
		for _, target := range allStatuses {
			for _, ev := range allEvidence {
				t.Run(string(from)+"->"+string(target)+"/"+string(ev), func(t *testing.T) {
					p := clientPayment(from)
					if from == domain.PaymentStatusPaid {
						paidOn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
						p.PaymentDate = &paidOn
					}

					result, err := sm.AttemptTransition(p, target, domain.Evidence{Kind: ev})
					require.Error(t, err)
					assert.Nil(t, result)
					assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTerminalState))
				})
			}
		}
	}
}

func TestAttemptTransition_PairsOutsideTableAreIllegal(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC))
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, from := range allStatuses {
		if from.IsTerminal() {
			continue
		}
		for _, target := range allStatuses {
			if target == from || CanTransition(from, target) {
				continue
			}
			t.Run(string(from)+"->"+string(target), func(t *testing.T) {
				// Give the payment every kind of evidence so only the table can reject it.
				p := withInvoice(clientPayment(from), at)
				for _, ev := range allEvidence {
					_, err := sm.AttemptTransition(p, target, domain.Evidence{Kind: ev})
					require.Error(t, err)
					assert.True(t, domain.IsDomainError(err, domain.ErrorCodeIllegalTransition), "evidence %q: %v", ev, err)
				}
			})
		}
	}
}

func TestAttemptTransition_OverdueIsNeverATarget(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	_, err := sm.AttemptTransition(clientPayment(domain.PaymentStatusPending), domain.PaymentStatusOverdue, domain.Evidence{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeIllegalTransition))

	// Also for legacy rows already stored as OVERDUE
	_, err = sm.AttemptTransition(clientPayment(domain.PaymentStatusOverdue), domain.PaymentStatusOverdue, domain.Evidence{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeIllegalTransition))
}

func TestAttemptTransition_SameStatusIsNoOp(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC))

	for _, status := range []domain.PaymentStatus{
		domain.PaymentStatusPending,
		domain.PaymentStatusAwaitingInvoice,
		domain.PaymentStatusReadyToPay,
		domain.PaymentStatusAwaitingValidation,
	} {
		t.Run(string(status), func(t *testing.T) {
			p := clientPayment(status)
			result, err := sm.AttemptTransition(p, status, domain.Evidence{})
			require.NoError(t, err)
			assert.False(t, result.Changed)
			assert.Nil(t, result.Next)
			assert.Equal(t, p, result.Payment)
			assert.NotSame(t, p, result.Payment)
		})
	}
}

func TestAttemptTransition_MissingEvidenceThenSuccess(t *testing.T) {
	now := time.Date(2024, 3, 8, 15, 30, 0, 0, time.UTC)
	sm := fixedMachine(now)

	for _, from := range []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusReadyToPay} {
		t.Run(string(from), func(t *testing.T) {
			p := clientPayment(from)
			p.RequiresInvoice = true

			_, err := sm.AttemptTransition(p, domain.PaymentStatusPaid, domain.Evidence{})
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingEvidence))

			attached, err := sm.AttachDocument(p, domain.Document{ID: "inv-1", IsInvoice: true})
			require.NoError(t, err)

			result, err := sm.AttemptTransition(attached.Payment, domain.PaymentStatusPaid, domain.Evidence{})
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentStatusPaid, result.Payment.Status)
		})
	}
}

func TestAttemptTransition_InvoiceFlagWithoutTimestampFailsGate(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	p := clientPayment(domain.PaymentStatusReadyToPay)
	p.RequiresInvoice = true
	p.AttachedDocuments = []domain.Document{{ID: "inv-1", IsInvoice: true}}

	_, err := sm.AttemptTransition(p, domain.PaymentStatusPaid, domain.Evidence{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingEvidence))
}

func TestAttemptTransition_PaidSetsPaymentDateAndLeavesInputUntouched(t *testing.T) {
	now := time.Date(2024, 3, 8, 17, 45, 0, 0, time.UTC)
	sm := fixedMachine(now)

	p := clientPayment(domain.PaymentStatusPending)
	before := p.Clone()

	result, err := sm.AttemptTransition(p, domain.PaymentStatusPaid, domain.Evidence{})
	require.NoError(t, err)

	require.NotNil(t, result.Payment.PaymentDate)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), *result.Payment.PaymentDate)
	assert.Equal(t, now, result.Payment.UpdatedAt)
	assert.Equal(t, domain.PaymentStatusPending, result.From)
	assert.True(t, result.Changed)
	assert.Nil(t, result.Next, "non-recurring payment generates nothing")
	assert.Equal(t, before, p)
}

func TestAttemptTransition_EvidenceKinds(t *testing.T) {
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	sm := fixedMachine(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		from     domain.PaymentStatus
		target   domain.PaymentStatus
		evidence domain.EvidenceKind
		invoice  bool
		code     domain.ErrorCode
	}{
		{"proof of payment submits for validation", domain.PaymentStatusReadyToPay, domain.PaymentStatusAwaitingValidation, domain.EvidenceProofOfPayment, true, ""},
		{"submission without proof", domain.PaymentStatusReadyToPay, domain.PaymentStatusAwaitingValidation, domain.EvidenceNone, true, domain.ErrorCodeIllegalTransition},
		{"submission with approval instead of proof", domain.PaymentStatusReadyToPay, domain.PaymentStatusAwaitingValidation, domain.EvidenceApproval, true, domain.ErrorCodeIllegalTransition},
		{"approval pays validated payment", domain.PaymentStatusAwaitingValidation, domain.PaymentStatusPaid, domain.EvidenceApproval, true, ""},
		{"validated payment without approval", domain.PaymentStatusAwaitingValidation, domain.PaymentStatusPaid, domain.EvidenceNone, true, domain.ErrorCodeIllegalTransition},
		{"approval still needs the invoice", domain.PaymentStatusAwaitingValidation, domain.PaymentStatusPaid, domain.EvidenceApproval, false, domain.ErrorCodeMissingEvidence},
		{"explicit ready to pay with invoice", domain.PaymentStatusAwaitingInvoice, domain.PaymentStatusReadyToPay, domain.EvidenceDocumentAttached, true, ""},
		{"explicit ready to pay without invoice", domain.PaymentStatusAwaitingInvoice, domain.PaymentStatusReadyToPay, domain.EvidenceDocumentAttached, false, domain.ErrorCodeMissingEvidence},
		{"ready to pay without attach event", domain.PaymentStatusAwaitingInvoice, domain.PaymentStatusReadyToPay, domain.EvidenceNone, true, domain.ErrorCodeIllegalTransition},
		{"unknown evidence kind", domain.PaymentStatusPending, domain.PaymentStatusPaid, "SIGNATURE", false, domain.ErrorCodeIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := clientPayment(tt.from)
			p.RequiresInvoice = true
			if tt.invoice {
				withInvoice(p, at)
			}

			result, err := sm.AttemptTransition(p, tt.target, domain.Evidence{Kind: tt.evidence})
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.target, result.Payment.Status)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.GetErrorCode(err))
		})
	}
}

func TestAttemptTransition_AwaitingInvoiceRequiresFlag(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	p := clientPayment(domain.PaymentStatusPending)
	_, err := sm.AttemptTransition(p, domain.PaymentStatusAwaitingInvoice, domain.Evidence{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeIllegalTransition))

	p.RequiresInvoice = true
	result, err := sm.AttemptTransition(p, domain.PaymentStatusAwaitingInvoice, domain.Evidence{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusAwaitingInvoice, result.Payment.Status)
}

func TestAttemptTransition_CancelFromAnyNonTerminal(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	for _, from := range allStatuses {
		if from.IsTerminal() {
			continue
		}
		t.Run(string(from), func(t *testing.T) {
			p := clientPayment(from)
			p.RequiresInvoice = true
			p.IsRecurring = true

			result, err := sm.AttemptTransition(p, domain.PaymentStatusCanceled, domain.Evidence{})
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentStatusCanceled, result.Payment.Status)
			assert.Nil(t, result.Payment.PaymentDate)
			assert.Nil(t, result.Next, "cancel never generates the next occurrence")
		})
	}
}

func TestAttemptTransition_LegacyOverdueCanBePaid(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	result, err := sm.AttemptTransition(clientPayment(domain.PaymentStatusOverdue), domain.PaymentStatusPaid, domain.Evidence{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, result.Payment.Status)
}

func TestAttemptTransition_RecurringGeneratesNext(t *testing.T) {
	now := time.Date(2024, 1, 30, 10, 0, 0, 0, time.UTC)
	sm := fixedMachine(now)

	freq := domain.FrequencyMonthly
	p := clientPayment(domain.PaymentStatusPending)
	p.IsRecurring = true
	p.RecurringFrequency = &freq
	p.DueDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	result, err := sm.AttemptTransition(p, domain.PaymentStatusPaid, domain.Evidence{})
	require.NoError(t, err)
	require.NotNil(t, result.Next)

	assert.Equal(t, "gen-1", result.Next.ID)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), result.Next.DueDate)
	assert.Equal(t, domain.PaymentStatusPending, result.Next.Status)
	assert.Nil(t, result.Next.PaymentDate)
	require.NotNil(t, result.Next.ParentPaymentID)
	assert.Equal(t, "pay-1", *result.Next.ParentPaymentID)
}

func TestAttemptTransition_RecurringWithoutFrequencyFailsAtomically(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	p := clientPayment(domain.PaymentStatusPending)
	p.IsRecurring = true
	before := p.Clone()

	result, err := sm.AttemptTransition(p, domain.PaymentStatusPaid, domain.Evidence{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidFrequency))
	assert.Equal(t, before, p)
}

func TestAttachDocument(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	sm := fixedMachine(now)

	tests := []struct {
		name            string
		status          domain.PaymentStatus
		requiresInvoice bool
		isInvoice       bool
		wantStatus      domain.PaymentStatus
		wantInvoiceAt   bool
	}{
		{"invoice on awaiting invoice", domain.PaymentStatusAwaitingInvoice, true, true, domain.PaymentStatusReadyToPay, true},
		{"invoice on pending requiring invoice", domain.PaymentStatusPending, true, true, domain.PaymentStatusReadyToPay, true},
		{"invoice on pending without requirement", domain.PaymentStatusPending, false, true, domain.PaymentStatusPending, true},
		{"non-invoice on awaiting invoice", domain.PaymentStatusAwaitingInvoice, true, false, domain.PaymentStatusAwaitingInvoice, false},
		{"invoice on awaiting validation", domain.PaymentStatusAwaitingValidation, true, true, domain.PaymentStatusAwaitingValidation, true},
		{"receipt on paid payment", domain.PaymentStatusPaid, true, false, domain.PaymentStatusPaid, false},
		{"invoice on canceled payment", domain.PaymentStatusCanceled, true, true, domain.PaymentStatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := clientPayment(tt.status)
			p.RequiresInvoice = tt.requiresInvoice

			result, err := sm.AttachDocument(p, domain.Document{ID: "doc-1", Name: "file.pdf", IsInvoice: tt.isInvoice})
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, result.Payment.Status)
			assert.Equal(t, tt.wantStatus != tt.status, result.Changed)
			assert.Equal(t, tt.wantInvoiceAt, result.Payment.InvoiceAttachedAt != nil)
			require.Len(t, result.Payment.AttachedDocuments, 1)
			assert.Equal(t, now, result.Payment.AttachedDocuments[0].AttachedAt)
			assert.Empty(t, p.AttachedDocuments, "input untouched")
			assert.Equal(t, tt.status, p.Status)
		})
	}
}

func TestAttachDocument_KeepsFirstInvoiceTimestampAndOrder(t *testing.T) {
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sm := fixedMachine(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	p := withInvoice(clientPayment(domain.PaymentStatusReadyToPay), first)
	result, err := sm.AttachDocument(p, domain.Document{ID: "inv-2", IsInvoice: true})
	require.NoError(t, err)

	assert.Equal(t, first, *result.Payment.InvoiceAttachedAt)
	require.Len(t, result.Payment.AttachedDocuments, 2)
	assert.Equal(t, "inv-1", result.Payment.AttachedDocuments[0].ID)
	assert.Equal(t, "inv-2", result.Payment.AttachedDocuments[1].ID)
}

func TestAttachDocument_Validation(t *testing.T) {
	sm := fixedMachine(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	p := withInvoice(clientPayment(domain.PaymentStatusReadyToPay), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	_, err := sm.AttachDocument(p, domain.Document{})
	assert.True(t, domain.IsValidationError(err))

	_, err = sm.AttachDocument(p, domain.Document{ID: "inv-1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
}

func TestDetachDocument(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sm := fixedMachine(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name          string
		status        domain.PaymentStatus
		extraInvoice  bool
		detach        string
		code          domain.ErrorCode
		wantInvoiceAt bool
	}{
		{"last invoice while ready to pay", domain.PaymentStatusReadyToPay, false, "inv-1", domain.ErrorCodeEvidenceWithdrawal, false},
		{"last invoice while awaiting validation", domain.PaymentStatusAwaitingValidation, false, "inv-1", domain.ErrorCodeEvidenceWithdrawal, false},
		{"last invoice on paid", domain.PaymentStatusPaid, false, "inv-1", domain.ErrorCodeEvidenceWithdrawal, false},
		{"replaced invoice while ready to pay", domain.PaymentStatusReadyToPay, true, "inv-1", "", true},
		{"last invoice while pending", domain.PaymentStatusPending, false, "inv-1", "", false},
		{"last invoice while awaiting invoice", domain.PaymentStatusAwaitingInvoice, false, "inv-1", "", false},
		{"last invoice on canceled", domain.PaymentStatusCanceled, false, "inv-1", "", false},
		{"supporting document on paid", domain.PaymentStatusPaid, false, "note-1", "", true},
		{"unknown document", domain.PaymentStatusPending, false, "missing", domain.ErrorCodeDocumentNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := withInvoice(clientPayment(tt.status), at)
			p.AttachedDocuments = append(p.AttachedDocuments, domain.Document{ID: "note-1", Name: "note.txt"})
			if tt.extraInvoice {
				p.AttachedDocuments = append(p.AttachedDocuments, domain.Document{ID: "inv-2", IsInvoice: true})
			}
			docCount := len(p.AttachedDocuments)

			next, err := sm.DetachDocument(p, tt.detach)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, domain.GetErrorCode(err))
				assert.Len(t, p.AttachedDocuments, docCount)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.status, next.Status, "detach never changes status")
			assert.Len(t, next.AttachedDocuments, docCount-1)
			assert.Equal(t, -1, next.FindDocument(tt.detach))
			assert.Equal(t, tt.wantInvoiceAt, next.InvoiceAttachedAt != nil)
			assert.Len(t, p.AttachedDocuments, docCount, "input untouched")
		})
	}
}

func TestDetachDocument_InvoiceTimestampFollowsRemainingInvoices(t *testing.T) {
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)
	third := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	sm := fixedMachine(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	p := withInvoice(clientPayment(domain.PaymentStatusReadyToPay), first)
	p.AttachedDocuments = append(p.AttachedDocuments,
		domain.Document{ID: "inv-3", IsInvoice: true, AttachedAt: third},
		domain.Document{ID: "inv-2", IsInvoice: true, AttachedAt: second},
	)

	next, err := sm.DetachDocument(p, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, next.InvoiceAttachedAt)
	assert.Equal(t, second, *next.InvoiceAttachedAt, "earliest remaining invoice")
	assert.Equal(t, first, *p.InvoiceAttachedAt, "input untouched")

	next, err = sm.DetachDocument(next, "inv-3")
	require.NoError(t, err)
	assert.Equal(t, second, *next.InvoiceAttachedAt)
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.Empty(t, ValidTransitionsFrom(domain.PaymentStatusPaid))
	assert.Empty(t, ValidTransitionsFrom(domain.PaymentStatusCanceled))

	assert.Equal(t, []domain.PaymentStatus{
		domain.PaymentStatusAwaitingInvoice,
		domain.PaymentStatusCanceled,
		domain.PaymentStatusPaid,
		domain.PaymentStatusReadyToPay,
	}, ValidTransitionsFrom(domain.PaymentStatusPending))

	assert.Equal(t, []domain.PaymentStatus{
		domain.PaymentStatusCanceled,
		domain.PaymentStatusPaid,
	}, ValidTransitionsFrom(domain.PaymentStatusOverdue))
}

// A CLIENT payment requiring an invoice, due 2024-03-10: invoice attached on
// 03-05, paid on 03-08, cancel attempt afterwards rejected.
func TestScenario_InvoicedClientPaymentLifecycle(t *testing.T) {
	p := clientPayment(domain.PaymentStatusPending)
	p.RequiresInvoice = true

	attach := fixedMachine(time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC))
	attached, err := attach.AttachDocument(p, domain.Document{ID: "inv-1", Name: "invoice-march.pdf", IsInvoice: true})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusReadyToPay, attached.Payment.Status)

	pay := fixedMachine(time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC))
	paid, err := pay.AttemptTransition(attached.Payment, domain.PaymentStatusPaid, domain.Evidence{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.Payment.Status)
	require.NotNil(t, paid.Payment.PaymentDate)
	assert.Equal(t, "2024-03-08", paid.Payment.PaymentDate.Format(timeutil.DateLayout))

	_, err = pay.AttemptTransition(paid.Payment, domain.PaymentStatusCanceled, domain.Evidence{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTerminalState))
}
