package db

import (
	"context"
	"errors"
	"time"

	"production_backend/platform/config"
	"production_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithRetry runs fn up to attempts times with quadratic backoff. It is used
// at startup while the database or Redis may still be coming up.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

// Connect opens the pool, retrying while Postgres starts.
func Connect(ctx context.Context, log *logger.Logger, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}
