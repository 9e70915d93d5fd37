package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/patchbay/pkg/adapters/redis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "k", time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)

	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_FreeLockIsTakenWithoutWaiting(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")

	// Shorter than one retry interval.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	token, err := mr.Get("test:lock:k")
	require.NoError(t, err)
	_, err = uuid.Parse(token)
	assert.NoError(t, err, "holder token is a uuid")

	require.NoError(t, unlock(context.Background()))
	assert.False(t, mr.Exists("test:lock:k"))
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	mr.FastForward(100 * time.Millisecond)

	fresh, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, stale(ctx), redis.ErrLockLost)
	assert.True(t, mr.Exists("test:lock:k"), "newer holder keeps the lock")
	require.NoError(t, fresh(ctx))
}
