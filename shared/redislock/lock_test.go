package redislock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test:"), mr
}

func TestLocker_TryAcquire(t *testing.T) {
	ctx := context.Background()
	locker, mr := newLocker(t)

	lease, ok, err := locker.TryAcquire(ctx, "recurrence", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:recurrence"))

	_, ok, err = locker.TryAcquire(ctx, "recurrence", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("test:recurrence"))

	_, ok, err = locker.TryAcquire(ctx, "recurrence", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocker_ExpiredLeaseCannotReleaseNewHolder(t *testing.T) {
	ctx := context.Background()
	locker, mr := newLocker(t)

	stale, ok, err := locker.TryAcquire(ctx, "recurrence", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	fresh, ok, err := locker.TryAcquire(ctx, "recurrence", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, stale.Release(ctx), ErrNotHeld)
	assert.True(t, mr.Exists("test:recurrence"))
	require.NoError(t, fresh.Release(ctx))
}

func TestNew_DefaultPrefix(t *testing.T) {
	locker := New(nil, "")
	assert.Equal(t, "lock:", locker.prefix)
}
