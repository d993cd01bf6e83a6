package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/pkg/observability"
	"github.com/kevin07696/clientledger/pkg/timeutil"
)

const defaultSweepBatchSize = 200

// OverdueSweep finds payments past their due date and emits a reminder event
// for each. Stored statuses are left as they are.
type OverdueSweep struct {
	db        ports.DBPort
	repo      ports.PaymentRepository
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    ports.Logger
	batchSize int32
}

// NewOverdueSweep creates a sweep over the payment repository
func NewOverdueSweep(
	db ports.DBPort,
	repo ports.PaymentRepository,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger ports.Logger,
	batchSize int32,
) *OverdueSweep {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &OverdueSweep{
		db:        db,
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Sweep scans one firm, or every firm when firmID is empty
func (s *OverdueSweep) Sweep(ctx context.Context, firmID string) (*serviceports.OverdueSweepResult, error) {
	start := time.Now()
	now := s.clock.Now()
	today := timeutil.StartOfDay(now)
	result := &serviceports.OverdueSweepResult{FirmID: firmID}

	perFirm := make(map[string]int)
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.repo.ListOpenDueBefore(ctx, s.db.GetDB(), firmID, today, afterID, s.batchSize)
		if err != nil {
			s.logger.Error("overdue sweep query failed",
				ports.String("firm_id", firmID),
				ports.String("after_id", afterID),
				ports.Err(err))
			return result, err
		}

		for _, p := range batch {
			result.Scanned++
			if !IsOverdue(p, now) {
				continue
			}
			result.Overdue++
			perFirm[p.FirmID]++
			if s.remind(ctx, p, now) {
				result.RemindersSent++
			} else {
				result.RemindersFailed++
			}
		}

		if int32(len(batch)) < s.batchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	if firmID == "" {
		observability.ReplaceOverduePayments(perFirm)
	} else {
		observability.UpdateOverduePayments(firmID, float64(result.Overdue))
	}
	observability.ObserveOverdueSweep(time.Since(start).Seconds())

	s.logger.Info("overdue sweep completed",
		ports.String("firm_id", firmID),
		ports.Int("scanned", result.Scanned),
		ports.Int("overdue", result.Overdue),
		ports.Int("reminders_sent", result.RemindersSent),
		ports.Int("reminders_failed", result.RemindersFailed),
		ports.Duration("duration", time.Since(start)))

	return result, nil
}

func (s *OverdueSweep) remind(ctx context.Context, p *domain.Payment, now time.Time) bool {
	if s.publisher == nil {
		observability.RecordEventPublished(string(domain.EventPaymentOverdueReminder), "skipped")
		return true
	}

	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventPaymentOverdueReminder,
		OccurredAt: now,
		Payload: domain.OverdueReminder{
			PaymentID:   p.ID,
			FirmID:      p.FirmID,
			ClientID:    p.GetClientID(),
			DueDate:     p.DueDate,
			Amount:      p.Amount,
			Currency:    p.Currency,
			DaysOverdue: DaysOverdue(p, now),
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		observability.RecordEventPublished(string(event.Type), "failed")
		s.logger.Warn("failed to publish overdue reminder",
			ports.String("payment_id", p.ID),
			ports.Err(err))
		return false
	}
	observability.RecordEventPublished(string(event.Type), "success")
	return true
}
