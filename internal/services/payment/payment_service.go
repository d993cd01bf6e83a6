package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/pkg/observability"
	"github.com/kevin07696/clientledger/pkg/resilience"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

const (
	lockTTL          = 10 * time.Second
	lockMaxAttempts  = 20
	maxConflictRetry = 1
)

// Service implements serviceports.PaymentService
type Service struct {
	db          ports.DBPort
	repo        ports.PaymentRepository
	clients     ports.ClientDirectory
	locker      ports.RecordLocker
	publisher   ports.EventPublisher
	clock       ports.Clock
	logger      ports.Logger
	machine     *StateMachine
	timeouts    *resilience.TimeoutConfig
	lockBackoff resilience.BackoffStrategy
	newID       func() string
}

// NewService creates a new payment service
func NewService(
	db ports.DBPort,
	repo ports.PaymentRepository,
	clients ports.ClientDirectory,
	locker ports.RecordLocker,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger ports.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		clients:     clients,
		locker:      locker,
		publisher:   publisher,
		clock:       clock,
		logger:      logger,
		machine:     NewStateMachine(clock, uuid.NewString),
		timeouts:    resilience.DefaultTimeoutConfig(),
		lockBackoff: resilience.LockBackoff(),
		newID:       uuid.NewString,
	}
}

// WithIDGenerator overrides how payment IDs are generated
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	s.machine = NewStateMachine(s.clock, newID)
	return s
}

// WithTimeouts overrides the timeout hierarchy
func (s *Service) WithTimeouts(tc *resilience.TimeoutConfig) *Service {
	s.timeouts = tc
	return s
}

// WithLockBackoff overrides the wait between lock attempts
func (s *Service) WithLockBackoff(b resilience.BackoffStrategy) *Service {
	s.lockBackoff = b
	return s
}

// CreatePayment validates and stores a new payment
func (s *Service) CreatePayment(ctx context.Context, req *serviceports.CreatePaymentRequest) (*serviceports.PaymentView, error) {
	if req.FirmID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "firm_id is required").
			WithDetail("field", "firm_id")
	}

	now := s.clock.Now()
	p, err := domain.NewPayment(domain.NewPaymentParams{
		ID:                   s.newID(),
		FirmID:               req.FirmID,
		PaymentType:          req.PaymentType,
		ClientID:             req.ClientID,
		Title:                req.Title,
		Description:          req.Description,
		Amount:               req.Amount,
		Currency:             req.Currency,
		DueDate:              req.DueDate,
		RequiresInvoice:      req.RequiresInvoice,
		StartAwaitingInvoice: req.StartAwaitingInvoice,
		IsRecurring:          req.IsRecurring,
		RecurringFrequency:   req.RecurringFrequency,
	}, now)
	if err != nil {
		observability.RecordPaymentRejection("create", string(domain.GetErrorCode(err)))
		return nil, err
	}

	if p.PaymentType == domain.PaymentTypeClient {
		if err := s.ensureClientExists(ctx, p.GetClientID()); err != nil {
			observability.RecordPaymentRejection("create", string(domain.GetErrorCode(err)))
			return nil, err
		}
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.Create(ctx, tx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create payment failed",
			ports.String("firm_id", req.FirmID),
			ports.Err(err))
		return nil, err
	}

	s.logger.Info("payment created",
		ports.String("payment_id", p.ID),
		ports.String("firm_id", p.FirmID),
		ports.String("status", string(p.Status)),
		ports.String("due_date", p.DueDate.Format("2006-01-02")))

	return s.toView(p, now), nil
}

// GetPayment returns a payment with its derived overdue flag
func (s *Service) GetPayment(ctx context.Context, paymentID string) (*serviceports.PaymentView, error) {
	p, err := s.repo.GetByID(ctx, s.db.GetDB(), paymentID)
	if err != nil {
		return nil, err
	}
	return s.toView(p, s.clock.Now()), nil
}

// ListPayments lists payments of a firm
func (s *Service) ListPayments(ctx context.Context, req *serviceports.ListPaymentsRequest) ([]*serviceports.PaymentView, error) {
	if req.FirmID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "firm_id is required").
			WithDetail("field", "firm_id")
	}

	now := s.clock.Now()
	filter := ports.PaymentFilter{
		FirmID:   req.FirmID,
		ClientID: req.ClientID,
		Statuses: req.Statuses,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.OverdueOnly {
		filter.OpenDueBefore = timeutil.StartOfDay(now)
	}

	payments, err := s.repo.List(ctx, s.db.GetDB(), filter)
	if err != nil {
		return nil, err
	}

	views := make([]*serviceports.PaymentView, 0, len(payments))
	for _, p := range payments {
		if req.OverdueOnly && !IsOverdue(p, now) {
			continue
		}
		views = append(views, s.toView(p, now))
	}
	return views, nil
}

// Transition applies a status change through the state machine. A same-status
// request succeeds without writing or publishing anything.
func (s *Service) Transition(ctx context.Context, req *serviceports.TransitionRequest) (*serviceports.TransitionResponse, error) {
	if req.PaymentID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "payment_id is required").
			WithDetail("field", "payment_id")
	}

	var (
		result  *TransitionResult
		current *domain.Payment
	)
	err := s.mutate(ctx, req.PaymentID, req.ExpectedVersion, func(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
		current = p
		r, err := s.machine.AttemptTransition(p, req.TargetStatus, req.Evidence)
		if err != nil {
			return err
		}
		result = r
		if !r.Changed {
			return nil
		}

		if r.Next != nil && r.Next.PaymentType == domain.PaymentTypeClient {
			if err := s.ensureClientExists(ctx, r.Next.GetClientID()); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, r.Payment); err != nil {
			return err
		}
		if r.Next != nil {
			if err := s.repo.Create(ctx, tx, r.Next); err != nil {
				return fmt.Errorf("create next occurrence: %w", err)
			}
		}
		return nil
	})

	from := "unknown"
	if current != nil {
		from = string(current.Status)
	}
	if err != nil {
		observability.RecordPaymentTransition(from, string(req.TargetStatus), "rejected")
		if code := domain.GetErrorCode(err); code != "" {
			observability.RecordPaymentRejection("transition", string(code))
		}
		s.logger.Warn("payment transition rejected",
			ports.String("payment_id", req.PaymentID),
			ports.String("from", from),
			ports.String("to", string(req.TargetStatus)),
			ports.String("evidence", string(req.Evidence.Kind)),
			ports.Err(err))
		return nil, err
	}

	now := s.clock.Now()
	resp := &serviceports.TransitionResponse{
		Payment: s.toView(result.Payment, now),
		Changed: result.Changed,
	}
	if !result.Changed {
		observability.RecordPaymentTransition(from, string(req.TargetStatus), "noop")
		return resp, nil
	}

	observability.RecordPaymentTransition(from, string(req.TargetStatus), "applied")
	s.logger.Info("payment transitioned",
		ports.String("payment_id", result.Payment.ID),
		ports.String("from", string(result.From)),
		ports.String("to", string(result.Payment.Status)),
		ports.Int64("version", result.Payment.Version))

	s.publishStatusChange(ctx, result.Payment, result.From)
	if result.Next != nil {
		observability.RecordRecurringGenerated(string(*result.Next.RecurringFrequency))
		resp.Generated = s.toView(result.Next, now)
		s.logger.Info("recurring payment generated",
			ports.String("payment_id", result.Next.ID),
			ports.String("parent_payment_id", result.Payment.ID),
			ports.String("due_date", result.Next.DueDate.Format("2006-01-02")))
		s.publish(ctx, domain.EventPaymentRecurringCreated, domain.RecurringPaymentGenerated{
			PaymentID:       result.Next.ID,
			ParentPaymentID: result.Payment.ID,
			FirmID:          result.Next.FirmID,
			DueDate:         result.Next.DueDate,
		})
	}

	return resp, nil
}

// AttachDocument attaches a document reference. Attaching the invoice to a
// payment waiting for it moves the payment to READY_TO_PAY.
func (s *Service) AttachDocument(ctx context.Context, req *serviceports.AttachDocumentRequest) (*serviceports.TransitionResponse, error) {
	if req.PaymentID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "payment_id is required").
			WithDetail("field", "payment_id")
	}
	documentID := req.DocumentID
	if documentID == "" {
		documentID = s.newID()
	}

	var result *TransitionResult
	err := s.mutate(ctx, req.PaymentID, nil, func(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
		r, err := s.machine.AttachDocument(p, domain.Document{
			ID:        documentID,
			Name:      req.Name,
			IsInvoice: req.IsInvoice,
		})
		if err != nil {
			return err
		}
		result = r
		return s.repo.Update(ctx, tx, r.Payment)
	})
	if err != nil {
		if code := domain.GetErrorCode(err); code != "" {
			observability.RecordPaymentRejection("attach", string(code))
		}
		s.logger.Warn("attach document failed",
			ports.String("payment_id", req.PaymentID),
			ports.String("document_id", documentID),
			ports.Err(err))
		return nil, err
	}

	observability.RecordPaymentDocument("attach", req.IsInvoice)
	s.logger.Info("document attached",
		ports.String("payment_id", req.PaymentID),
		ports.String("document_id", documentID),
		ports.Bool("is_invoice", req.IsInvoice),
		ports.String("status", string(result.Payment.Status)))

	if result.Changed {
		observability.RecordPaymentTransition(string(result.From), string(result.Payment.Status), "applied")
		s.publishStatusChange(ctx, result.Payment, result.From)
	}

	return &serviceports.TransitionResponse{
		Payment: s.toView(result.Payment, s.clock.Now()),
		Changed: result.Changed,
	}, nil
}

// DetachDocument removes a document reference
func (s *Service) DetachDocument(ctx context.Context, paymentID, documentID string) (*serviceports.PaymentView, error) {
	var (
		updated   *domain.Payment
		isInvoice bool
	)
	err := s.mutate(ctx, paymentID, nil, func(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
		if idx := p.FindDocument(documentID); idx >= 0 {
			isInvoice = p.AttachedDocuments[idx].IsInvoice
		}
		next, err := s.machine.DetachDocument(p, documentID)
		if err != nil {
			return err
		}
		updated = next
		return s.repo.Update(ctx, tx, next)
	})
	if err != nil {
		if code := domain.GetErrorCode(err); code != "" {
			observability.RecordPaymentRejection("detach", string(code))
		}
		s.logger.Warn("detach document failed",
			ports.String("payment_id", paymentID),
			ports.String("document_id", documentID),
			ports.Err(err))
		return nil, err
	}

	observability.RecordPaymentDocument("detach", isInvoice)
	s.logger.Info("document detached",
		ports.String("payment_id", paymentID),
		ports.String("document_id", documentID))

	return s.toView(updated, s.clock.Now()), nil
}

// mutate serializes a read-apply-write cycle on one payment: it takes the
// record lock, loads the snapshot inside a transaction and runs apply. A lost
// update is retried once with a fresh snapshot unless the caller pinned a
// version.
func (s *Service) mutate(
	ctx context.Context,
	paymentID string,
	expectedVersion *int64,
	apply func(ctx context.Context, tx pgx.Tx, p *domain.Payment) error,
) error {
	ctx, cancel := s.timeouts.ServiceContext(ctx)
	defer cancel()

	release, err := s.acquireLock(ctx, paymentID)
	if err != nil {
		return err
	}
	defer release()

	for attempt := 0; ; attempt++ {
		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			p, err := s.repo.GetByID(ctx, tx, paymentID)
			if err != nil {
				return err
			}
			if expectedVersion != nil && *expectedVersion != p.Version {
				return domain.NewDomainError(domain.ErrorCodeConcurrencyConflict, "payment was modified concurrently").
					WithDetail("payment_id", paymentID).
					WithDetail("expected_version", *expectedVersion).
					WithDetail("current_version", p.Version)
			}
			return apply(ctx, tx, p)
		})

		retry := errors.Is(err, domain.ErrConcurrencyConflict) &&
			expectedVersion == nil &&
			attempt < maxConflictRetry
		if !retry {
			return err
		}
		s.logger.Warn("concurrent update detected, retrying with fresh snapshot",
			ports.String("payment_id", paymentID),
			ports.Int("attempt", attempt+1))
	}
}

// acquireLock takes the per-record lock, waiting with backoff while another
// request holds it. When the lock backend itself fails the operation
// proceeds and relies on the version check alone.
func (s *Service) acquireLock(ctx context.Context, paymentID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	lockCtx, cancel := s.timeouts.LockWaitContext(ctx)
	defer cancel()

	var lock ports.Lock
	err := resilience.Retry(lockCtx, lockMaxAttempts, s.lockBackoff,
		func(err error) bool { return errors.Is(err, domain.ErrRecordLocked) },
		func(ctx context.Context) error {
			l, err := s.locker.TryAcquire(ctx, "payment:"+paymentID, lockTTL)
			if err != nil {
				return err
			}
			lock = l
			return nil
		})

	switch {
	case err == nil:
		observability.RecordLockAcquisition("acquired")
		return func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release payment lock",
					ports.String("payment_id", paymentID),
					ports.Err(err))
			}
		}, nil
	case errors.Is(err, domain.ErrRecordLocked),
		errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		observability.RecordLockAcquisition("contended")
		return nil, domain.NewDomainError(domain.ErrorCodeRecordLocked, "payment is locked by another request").
			WithDetail("payment_id", paymentID)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		observability.RecordLockAcquisition("error")
		s.logger.Warn("record lock unavailable, continuing with version check only",
			ports.String("payment_id", paymentID),
			ports.Err(err))
		return noop, nil
	}
}

func (s *Service) ensureClientExists(ctx context.Context, clientID string) error {
	if s.clients == nil {
		return nil
	}
	exists, err := s.clients.ClientExists(ctx, clientID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "failed to look up client", err)
	}
	if !exists {
		return domain.NewDomainError(domain.ErrorCodeClientNotFound, "client no longer exists").
			WithDetail("client_id", clientID)
	}
	return nil
}

func (s *Service) publishStatusChange(ctx context.Context, p *domain.Payment, from domain.PaymentStatus) {
	payload := domain.PaymentStatusChanged{
		PaymentID: p.ID,
		FirmID:    p.FirmID,
		ClientID:  p.GetClientID(),
		From:      from,
		To:        p.Status,
	}
	s.publish(ctx, domain.EventPaymentStatusChanged, payload)
	if p.Status == domain.PaymentStatusPaid {
		s.publish(ctx, domain.EventPaymentPaid, payload)
	}
}

// publish runs after the transaction committed; a failed publish is logged
// and counted but does not fail the request
func (s *Service) publish(ctx context.Context, eventType domain.EventType, payload interface{}) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := s.timeouts.PublishContext(context.WithoutCancel(ctx))
	defer cancel()

	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: s.clock.Now(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		observability.RecordEventPublished(string(eventType), "failed")
		s.logger.Error("failed to publish event",
			ports.String("event_type", string(eventType)),
			ports.String("event_id", event.ID),
			ports.Err(err))
		return
	}
	observability.RecordEventPublished(string(eventType), "success")
}

func (s *Service) toView(p *domain.Payment, now time.Time) *serviceports.PaymentView {
	return &serviceports.PaymentView{
		Payment:     p,
		IsOverdue:   IsOverdue(p, now),
		DaysOverdue: DaysOverdue(p, now),
		AllowedNext: ValidTransitionsFrom(p.Status),
	}
}
