package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisKeyLocker(rdb, 2*time.Second), mr
}

func TestWithKeyLock_RunsAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)

	ran := false
	err := locker.WithKeyLock(context.Background(), "Cleaning|2024-01-01|a@x.com", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:booking:Cleaning|2024-01-01|a@x.com"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:booking:Cleaning|2024-01-01|a@x.com"))
}

func TestWithKeyLock_Contended(t *testing.T) {
	locker, mr := newTestLocker(t)
	require.NoError(t, mr.Set("lock:booking:k", "someone-else"))

	err := locker.WithKeyLock(context.Background(), "k", func(ctx context.Context) error {
		t.Fatal("critical section must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	// a foreign holder's lock is left alone
	got, _ := mr.Get("lock:booking:k")
	assert.Equal(t, "someone-else", got)
}

func TestWithKeyLock_PropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t)
	boom := errors.New("boom")

	err := locker.WithKeyLock(context.Background(), "k", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:booking:k"))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()

	err := locker.WithKeyLock(context.Background(), "k", func(ctx context.Context) error {
		inner := locker.WithKeyLock(ctx, "k", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		other := locker.WithKeyLock(ctx, "other", func(context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)

	// released after the first call returns
	assert.NoError(t, locker.WithKeyLock(context.Background(), "k", func(context.Context) error { return nil }))
}
