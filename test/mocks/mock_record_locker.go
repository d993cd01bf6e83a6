package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// MockRecordLocker mocks ports.RecordLocker
type MockRecordLocker struct {
	mock.Mock
}

func (m *MockRecordLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ports.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Lock), args.Error(1)
}

// MockLock counts releases
type MockLock struct {
	Releases int
}

func (l *MockLock) Release(ctx context.Context) error {
	l.Releases++
	return nil
}
