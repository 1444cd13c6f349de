package repository

import (
	"context"
	"fmt"
	"time"

	"lessonbook/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisLockRepository backs the scheduler tick guard and API rate limits
// with redis, so several instances can share one guard.
type RedisLockRepository struct {
	client *redis.Client
}

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisLockRepository(client *redis.Client) *RedisLockRepository {
	return &RedisLockRepository{client: client}
}

// AcquireLock takes the named lock via SETNX with a TTL. The TTL bounds how
// long a crashed holder can block the guard.
func (r *RedisLockRepository) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, "lock:"+name, time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

func (r *RedisLockRepository) ReleaseLock(ctx context.Context, name string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, "lock:"+name).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (r *RedisLockRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := "rate_limit:" + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}
