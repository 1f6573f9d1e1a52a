package idempotency

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/config"
)

// Open returns a nil Guard when idempotency is disabled. The returned close
// func is never nil.
func Open(ctx context.Context, cfg config.IdempotencyConfig, logger *zap.Logger) (Guard, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, noop, fmt.Errorf("invalid idempotency ttl: %w", err)
	}

	switch strings.ToLower(cfg.Provider) {
	case "memory", "":
		logger.Info("idempotency claims kept in memory", zap.Duration("ttl", ttl))
		return NewMemoryGuard(ttl), noop, nil
	case "redis":
		guard, client, err := NewRedisGuardFromURL(ctx, cfg.RedisURL, ttl)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("idempotency claims kept in redis", zap.Duration("ttl", ttl))
		return guard, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported idempotency provider: %s", cfg.Provider)
	}
}
