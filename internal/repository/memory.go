package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryLockRepository is the in-process fallback guard. It protects a
// single instance only; multi-instance deployments need the redis guard.
type MemoryLockRepository struct {
	mu         sync.Mutex
	locks      map[string]time.Time
	rateLimits map[string]*rateLimitEntry
}

func NewMemoryLockRepository() *MemoryLockRepository {
	return &MemoryLockRepository{
		locks:      make(map[string]time.Time),
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

func (r *MemoryLockRepository) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if expiry, held := r.locks[name]; held && now.Before(expiry) {
		return false, nil
	}
	r.locks[name] = now.Add(ttl)
	return true, nil
}

func (r *MemoryLockRepository) ReleaseLock(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, name)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryLockRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	} else {
		entry.count++
	}
	return entry.count <= limit, nil
}
