package ports

import (
	"context"

	"github.com/kevin07696/clientledger/internal/domain"
)

// EventPublisher delivers domain events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
