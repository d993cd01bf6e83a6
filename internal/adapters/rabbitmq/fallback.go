package rabbitmq

import (
	"context"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// LogPublisher stands in for the broker when none is configured. Events are
// written to the log and dropped.
type LogPublisher struct {
	logger ports.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger ports.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.Event) error {
	p.logger.Debug("event not delivered, no broker configured",
		ports.String("event_id", event.ID),
		ports.String("event_type", string(event.Type)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
