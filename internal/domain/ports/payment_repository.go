package ports

import (
	"context"
	"time"

	"github.com/kevin07696/clientledger/internal/domain"
)

// PaymentFilter narrows List results. Zero values mean "any".
type PaymentFilter struct {
	FirmID   string
	ClientID string
	Statuses []domain.PaymentStatus
	// OpenDueBefore keeps non-terminal payments due strictly before this day.
	// LIMIT and OFFSET apply after it.
	OpenDueBefore time.Time
	Limit         int32
	Offset        int32
}

// PaymentRepository persists payment snapshots
type PaymentRepository interface {
	// Create inserts a new payment at version 0
	Create(ctx context.Context, tx DBTX, payment *domain.Payment) error

	// GetByID returns domain.ErrPaymentNotFound when no row exists
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Payment, error)

	// Update writes the snapshot only if the stored version still equals
	// payment.Version, then increments it. A lost update returns
	// domain.ErrConcurrencyConflict.
	Update(ctx context.Context, tx DBTX, payment *domain.Payment) error

	// List returns payments matching the filter ordered by due date
	List(ctx context.Context, db DBTX, filter PaymentFilter) ([]*domain.Payment, error)

	// ListOpenDueBefore returns non-terminal payments with a due date strictly
	// before the given day, ordered by ID and starting after afterID. An empty
	// firmID scans all firms.
	ListOpenDueBefore(ctx context.Context, db DBTX, firmID string, day time.Time, afterID string, limit int32) ([]*domain.Payment, error)
}

// ClientDirectory answers whether a client still exists
type ClientDirectory interface {
	ClientExists(ctx context.Context, clientID string) (bool, error)
}
