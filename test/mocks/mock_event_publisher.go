package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/clientledger/internal/domain"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []domain.Event
	// Err, when set, is returned from every Publish
	Err    error
	Closed bool
}

// NewMockEventPublisher creates a new mock publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{Events: []domain.Event{}}
}

// Publish captures the event
func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

// Close marks the publisher closed
func (m *MockEventPublisher) Close() error {
	m.Closed = true
	return nil
}

// Types returns the captured event types in publish order
func (m *MockEventPublisher) Types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]domain.EventType, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}
