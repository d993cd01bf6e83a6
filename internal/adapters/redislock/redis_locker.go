package redislock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
)

const defaultPrefix = "clientledger:lock"

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by someone else is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ports.RecordLocker with SET NX PX
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.RecordLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker storing keys under prefix
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = defaultPrefix
	}
	return &RedisLocker{client: client, prefix: trimmed}
}

// TryAcquire takes the lock for key or returns domain.ErrRecordLocked
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ports.Lock, error) {
	fullKey := fmt.Sprintf("%s:%s", l.prefix, key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, lockedError(key)
	}
	return &redisLock{client: l.client, key: fullKey, token: token}, nil
}

type redisLock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis unlock %s: %w", l.key, err)
	}
	return nil
}

func lockedError(key string) error {
	return domain.NewDomainError(domain.ErrorCodeRecordLocked, "record is locked by another request").
		WithDetail("lock_key", key)
}
