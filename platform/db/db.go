// Package db owns the Postgres pool, migrations and startup retries.
package db

import (
	"context"
	"time"

	"production_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        = 25
	defaultMinConns        = 5
	defaultMaxConnLifetime = time.Hour
	maxConnIdleTime        = 30 * time.Minute
	healthCheckPeriod      = time.Minute
)

// NewPool opens a pool sized from cfg and verifies it with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}
	applyPoolSettings(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// applyPoolSettings sizes the pool. Zero values fall back to the defaults and
// the minimum never exceeds the maximum.
func applyPoolSettings(pc *pgxpool.Config, cfg config.DatabaseConfig) {
	pc.MaxConns = cfg.GetDatabaseMaxConns()
	if pc.MaxConns <= 0 {
		pc.MaxConns = defaultMaxConns
	}
	pc.MinConns = cfg.GetDatabaseMinConns()
	if pc.MinConns <= 0 {
		pc.MinConns = min(defaultMinConns, pc.MaxConns)
	}
	pc.MinConns = min(pc.MinConns, pc.MaxConns)

	pc.MaxConnLifetime = cfg.GetDatabaseMaxConnLifetime()
	if pc.MaxConnLifetime <= 0 {
		pc.MaxConnLifetime = defaultMaxConnLifetime
	}
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod
}

// PoolAdapter lets the readiness endpoint ping the pool.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}
