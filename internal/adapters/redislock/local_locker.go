package redislock

import (
	"context"
	"sync"
	"time"

	"github.com/kevin07696/clientledger/internal/domain/ports"
)

// LocalLocker is an in-process RecordLocker for single-instance deployments
// and for running without Redis
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
	seq  uint64
}

type localEntry struct {
	expires time.Time
	id      uint64
}

var _ ports.RecordLocker = (*LocalLocker)(nil)

// NewLocalLocker creates an empty in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

// TryAcquire takes the lock for key unless an unexpired holder owns it
func (l *LocalLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ports.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expires) {
		return nil, lockedError(key)
	}

	l.seq++
	l.held[key] = localEntry{expires: now.Add(ttl), id: l.seq}
	return &localLock{owner: l, key: key, id: l.seq}, nil
}

type localLock struct {
	owner *LocalLocker
	key   string
	id    uint64
}

func (l *localLock) Release(ctx context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()

	if entry, ok := l.owner.held[l.key]; ok && entry.id == l.id {
		delete(l.owner.held, l.key)
	}
	return nil
}
