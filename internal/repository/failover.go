package repository

import (
	"context"
	"sync/atomic"
	"time"

	"lessonbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverLockRepository degrades from redis to the in-memory guard when
// redis is unreachable, and probes for recovery once a minute. A degraded
// guard still serializes ticks within this process, which keeps the
// scheduler running through a redis outage.
type FailoverLockRepository struct {
	primary   domain.LockRepository
	fallback  domain.LockRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	downSince atomic.Int64
}

func NewFailoverLockRepository(primary, fallback domain.LockRepository, logger *zerolog.Logger) *FailoverLockRepository {
	return &FailoverLockRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverLockRepository) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.AcquireLock(ctx, name, ttl)
		if err == nil {
			r.markUp()
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.AcquireLock(ctx, name, ttl)
}

func (r *FailoverLockRepository) ReleaseLock(ctx context.Context, name string) error {
	if r.usePrimary() {
		if err := r.primary.ReleaseLock(ctx, name); err == nil {
			r.markUp()
			return nil
		} else {
			r.markDown(err)
		}
	}
	return r.fallback.ReleaseLock(ctx, name)
}

func (r *FailoverLockRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

// usePrimary reports whether the primary should be tried: either it is
// healthy, or it has been down for over a minute and deserves a probe.
func (r *FailoverLockRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(r.downSince.Load(), 0)) > time.Minute
}

func (r *FailoverLockRepository) markDown(err error) {
	if r.isDown.CompareAndSwap(false, true) {
		r.logger.Error().Err(err).Msg("primary lock repository failed, falling back to memory")
	}
	r.downSince.Store(time.Now().Unix())
}

func (r *FailoverLockRepository) markUp() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("primary lock repository recovered")
	}
}
