package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "shelfcheck:idempotency:"
	pending   = "pending"
)

// RedisAPI is the subset of redis.Cmdable used here.
type RedisAPI interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard shares claims across service instances.
type RedisGuard struct {
	client RedisAPI
	ttl    time.Duration
}

func NewRedisGuard(client RedisAPI, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// NewRedisGuardFromURL parses a redis:// URL.
func NewRedisGuardFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisGuard, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisGuard(client, ttl), client, nil
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (string, bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, pending, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if ok {
		return "", true, nil
	}

	owner, err := g.client.Get(ctx, keyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET.
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read claim %s: %w", key, err)
	case owner == pending:
		return "", false, nil
	}
	return owner, false, nil
}

func (g *RedisGuard) Complete(ctx context.Context, key, txID string) error {
	if err := g.client.Set(ctx, keyPrefix+key, txID, g.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete claim %s: %w", key, err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release claim %s: %w", key, err)
	}
	return nil
}
