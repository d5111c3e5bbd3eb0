package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FinanceLockKey builds redis keys for finance critical sections keyed by
// period code ("YYYY-MM").
func FinanceLockKey(periodo string) string {
	return fmt.Sprintf("finanzas:periodo:%s:lock", periodo)
}

// PeriodLock provides short-lived mutual exclusion per period. Consolidation
// holds it for the whole run; reversals take it briefly so they never race a
// consolidation of the same period.
type PeriodLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodLock constructs a PeriodLock with the given lease TTL.
func NewPeriodLock(client *redis.Client, ttl time.Duration) *PeriodLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PeriodLock{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire takes the lock for periodo, returning a release func. A held lock
// yields ErrConcurrentConsolidation.
func (l *PeriodLock) Acquire(ctx context.Context, periodo string) (func(context.Context) error, error) {
	key := FinanceLockKey(periodo)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire period lock: %w", err)
	}
	if !ok {
		return nil, ErrConcurrentConsolidation
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
