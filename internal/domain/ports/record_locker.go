package ports

import (
	"context"
	"time"
)

// RecordLocker serializes operations on a single record across processes
type RecordLocker interface {
	// TryAcquire takes the lock for key if it is free. It returns
	// domain.ErrRecordLocked when another holder owns it.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held lock. Release is safe to call after the TTL expired.
type Lock interface {
	Release(ctx context.Context) error
}
