// Package cache provides the idempotency stores that guard payment submissions
// and event delivery against duplicates.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewRedisClient creates a client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore selects the store for the configuration. With Redis
// disabled, or unreachable, it falls back to the in-memory store; duplicates
// are then only detected within one process.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore()
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		return NewInMemoryIdempotencyStore()
	}
	logger.Info("using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return NewRedisIdempotencyStore(client, "")
}
