package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis initializes the Redis client used by the issue rate limiter.
// It returns a nil client when no address is configured.
func ConnectRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Address == "" {
		logger.Warn("REDIS_ADDRESS not set, issue rate limiting disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := backoffRetry(ctx, func() error {
		return client.Ping(ctx).Err()
	}, func(err error, wait time.Duration) {
		logger.Warn("Redis not reachable, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("address", cfg.Address))
	return client, nil
}
