package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lessonbook/internal/config"
	"lessonbook/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	ok, err := repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock is not re-acquirable")

	require.NoError(t, repo.ReleaseLock(ctx, "tick"))

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockExpiry(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	ok, err := repo.AcquireLock(ctx, "tick", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is free again")
}

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := repo.CheckRateLimit(ctx, "client", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.CheckRateLimit(ctx, "client", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRateLimitConcurrent(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	const callers = 50
	const limit = 25

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CheckRateLimit(ctx, "client", limit, time.Minute)
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load(), "exactly the window budget is admitted")
}

func newMiniredisRepo(t *testing.T) (*miniredis.Miniredis, *RedisLockRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisLockRepository(client)
}

func TestRedisLock(t *testing.T) {
	mr, repo := newMiniredisRepo(t)
	ctx := context.Background()

	ok, err := repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// TTL expiry frees the guard without an explicit release.
	mr.FastForward(2 * time.Minute)

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ReleaseLock(ctx, "tick"))

	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateLimit(t *testing.T) {
	mr, repo := newMiniredisRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := repo.CheckRateLimit(ctx, "client", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.CheckRateLimit(ctx, "client", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// The window resets once its TTL lapses.
	mr.FastForward(2 * time.Minute)

	ok, err = repo.CheckRateLimit(ctx, "client", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

// failingLocks always errors, standing in for an unreachable redis.
type failingLocks struct{}

func (failingLocks) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingLocks) ReleaseLock(ctx context.Context, name string) error {
	return errors.New("connection refused")
}

func (failingLocks) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestFailoverFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryLockRepository()
	var repo domain.LockRepository = NewFailoverLockRepository(failingLocks{}, fallback, &logger)
	ctx := context.Background()

	ok, err := repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "fallback serves when primary fails")

	// The fallback now holds the lock.
	ok, err = repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseLock(ctx, "tick"))

	ok, err = fallback.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "release went through the fallback")
}

func TestFailoverRecovers(t *testing.T) {
	logger := zerolog.Nop()
	_, primary := newMiniredisRepo(t)
	repo := NewFailoverLockRepository(primary, NewMemoryLockRepository(), &logger)
	ctx := context.Background()

	// Healthy primary serves directly.
	ok, err := repo.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := primary.AcquireLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, got, "lock lives in the primary")
}
