package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/clientledger/internal/adapters/postgres"
	"github.com/kevin07696/clientledger/internal/adapters/redislock"
	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/services/payment"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/internal/testutil/fixtures"
	"github.com/kevin07696/clientledger/pkg/resilience"
	"github.com/kevin07696/clientledger/pkg/timeutil"
	"github.com/kevin07696/clientledger/test/integration/testdb"
	"github.com/kevin07696/clientledger/test/mocks"
)

type paymentHarness struct {
	service   *payment.Service
	sweep     *payment.OverdueSweep
	publisher *mocks.MockEventPublisher
}

func newPaymentHarness(t *testing.T) (*paymentHarness, func(id string), func(id string)) {
	pool := testdb.SetupTestDB(t)
	db := postgres.NewDBExecutor(pool)
	repo := postgres.NewPaymentRepository(db)
	publisher := mocks.NewMockEventPublisher()
	logger := mocks.NewMockLogger()
	clock := timeutil.FixedClock{At: fixtures.Date(2024, 2, 10).Add(9 * 3600e9)}

	h := &paymentHarness{
		service: payment.NewService(db, repo, postgres.NewClientDirectory(db), redislock.NewLocalLocker(),
			publisher, clock, logger).WithTimeouts(resilience.TestTimeoutConfig()),
		sweep:     payment.NewOverdueSweep(db, repo, publisher, clock, logger, 2),
		publisher: publisher,
	}
	seed := func(id string) { testdb.SeedClient(t, pool, id, "firm-1") }
	remove := func(id string) { testdb.SoftDeleteClient(t, pool, id) }
	return h, seed, remove
}

func monthlyClientPayment(clientID string) *serviceports.CreatePaymentRequest {
	return &serviceports.CreatePaymentRequest{
		FirmID:             "firm-1",
		PaymentType:        domain.PaymentTypeClient,
		ClientID:           fixtures.StringPtr(clientID),
		Title:              "Bookkeeping retainer",
		Amount:             decimal.RequireFromString("450.00"),
		Currency:           "EUR",
		DueDate:            fixtures.Date(2024, 1, 31),
		IsRecurring:        true,
		RecurringFrequency: fixtures.FrequencyPtr(domain.FrequencyMonthly),
	}
}

func TestPaymentService_Integration_RecurringLifecycle(t *testing.T) {
	h, seedClient, _ := newPaymentHarness(t)
	ctx := context.Background()
	seedClient("client-1")

	created, err := h.service.CreatePayment(ctx, monthlyClientPayment("client-1"))
	require.NoError(t, err)
	assert.True(t, created.IsOverdue)
	assert.Equal(t, 10, created.DaysOverdue)
	assert.Equal(t, domain.PaymentStatusPending, created.Payment.Status)

	paid, err := h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:    created.Payment.ID,
		TargetStatus: domain.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.True(t, paid.Changed)
	assert.False(t, paid.Payment.IsOverdue, "paid payments are never overdue")
	require.NotNil(t, paid.Generated)
	assert.Equal(t, fixtures.Date(2024, 2, 29), paid.Generated.Payment.DueDate, "month end is clamped")

	stored, err := h.service.GetPayment(ctx, paid.Generated.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Payment.Status)
	require.NotNil(t, stored.Payment.ParentPaymentID)
	assert.Equal(t, created.Payment.ID, *stored.Payment.ParentPaymentID)
	assert.Equal(t, "450", stored.Payment.Amount.String())

	again, err := h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:    created.Payment.ID,
		TargetStatus: domain.PaymentStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Nil(t, again.Generated)

	all, err := h.service.ListPayments(ctx, &serviceports.ListPaymentsRequest{FirmID: "firm-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2, "paying twice generates one occurrence")

	assert.Contains(t, h.publisher.Types(), domain.EventPaymentPaid)
	assert.Contains(t, h.publisher.Types(), domain.EventPaymentRecurringCreated)
}

func TestPaymentService_Integration_DeletedClientBlocksGeneration(t *testing.T) {
	h, seedClient, removeClient := newPaymentHarness(t)
	ctx := context.Background()
	seedClient("client-2")

	created, err := h.service.CreatePayment(ctx, monthlyClientPayment("client-2"))
	require.NoError(t, err)
	removeClient("client-2")

	_, err = h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:    created.Payment.ID,
		TargetStatus: domain.PaymentStatusPaid,
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeClientNotFound))

	stored, err := h.service.GetPayment(ctx, created.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Payment.Status, "nothing is persisted")
	assert.Equal(t, int64(0), stored.Payment.Version)
}

func TestPaymentService_Integration_InvoiceGate(t *testing.T) {
	h, _, _ := newPaymentHarness(t)
	ctx := context.Background()

	created, err := h.service.CreatePayment(ctx, &serviceports.CreatePaymentRequest{
		FirmID:               "firm-1",
		PaymentType:          domain.PaymentTypeOffice,
		Title:                "Office rent",
		Amount:               decimal.RequireFromString("1200"),
		Currency:             "EUR",
		DueDate:              fixtures.Date(2024, 3, 1),
		RequiresInvoice:      true,
		StartAwaitingInvoice: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusAwaitingInvoice, created.Payment.Status)
	assert.False(t, created.IsOverdue)

	_, err = h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:    created.Payment.ID,
		TargetStatus: domain.PaymentStatusPaid,
	})
	require.Error(t, err)

	attached, err := h.service.AttachDocument(ctx, &serviceports.AttachDocumentRequest{
		PaymentID:  created.Payment.ID,
		DocumentID: "inv-1",
		Name:       "invoice.pdf",
		IsInvoice:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusReadyToPay, attached.Payment.Payment.Status)

	_, err = h.service.DetachDocument(ctx, created.Payment.ID, "inv-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeEvidenceWithdrawal))

	version := attached.Payment.Payment.Version
	stale := version - 1
	_, err = h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:       created.Payment.ID,
		TargetStatus:    domain.PaymentStatusPaid,
		ExpectedVersion: &stale,
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConcurrencyConflict))

	paid, err := h.service.Transition(ctx, &serviceports.TransitionRequest{
		PaymentID:       created.Payment.ID,
		TargetStatus:    domain.PaymentStatusPaid,
		ExpectedVersion: &version,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.Payment.Payment.Status)
	assert.Nil(t, paid.Generated)
}

func TestOverdueSweep_Integration(t *testing.T) {
	h, seedClient, _ := newPaymentHarness(t)
	ctx := context.Background()
	seedClient("client-3")

	for _, due := range []int{1, 5, 9} {
		req := monthlyClientPayment("client-3")
		req.DueDate = fixtures.Date(2024, 2, due)
		_, err := h.service.CreatePayment(ctx, req)
		require.NoError(t, err)
	}
	notYetDue := monthlyClientPayment("client-3")
	notYetDue.DueDate = fixtures.Date(2024, 2, 10)
	_, err := h.service.CreatePayment(ctx, notYetDue)
	require.NoError(t, err)

	result, err := h.sweep.Sweep(ctx, "firm-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 3, result.Overdue)
	assert.Equal(t, 3, result.RemindersSent)

	overdue, err := h.service.ListPayments(ctx, &serviceports.ListPaymentsRequest{FirmID: "firm-1", OverdueOnly: true})
	require.NoError(t, err)
	require.Len(t, overdue, 3)
	for _, v := range overdue {
		assert.Equal(t, domain.PaymentStatusPending, v.Payment.Status, "the sweep never rewrites status")
	}
}
