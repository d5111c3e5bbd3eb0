package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) *PeriodLock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPeriodLock(client, time.Minute)
}

func TestPeriodLockAcquireRelease(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "2025-03")
	assert.ErrorIs(t, err, ErrConcurrentConsolidation)

	// A different period is independent.
	release2, err := lock.Acquire(ctx, "2025-04")
	require.NoError(t, err)
	require.NoError(t, release2(ctx))

	require.NoError(t, release(ctx))
	release3, err := lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	require.NoError(t, release3(ctx))
}

func TestPeriodLockReleaseIsTokenScoped(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
	// Releasing twice is harmless: the token no longer matches.
	require.NoError(t, release(ctx))
}
