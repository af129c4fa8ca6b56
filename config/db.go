package config

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo creates a MongoDB client and pings it until it answers or the
// retry budget runs out.
func ConnectMongo(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("please define the MONGODB_URI environment variable")
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	err = backoffRetry(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return client.Ping(pingCtx, nil)
	}, func(err error, wait time.Duration) {
		logger.Warn("MongoDB not reachable, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.Database))
	return client, nil
}

// backoffRetry retries op with exponential backoff, bounded by ctx and six attempts.
func backoffRetry(ctx context.Context, op backoff.Operation, notify backoff.Notify) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, 6), ctx), notify)
}
