package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"production_backend/internal/email"
	"production_backend/internal/idempotency"
	"production_backend/internal/scheduler"
	"production_backend/platform/config"
	"production_backend/platform/db"
	"production_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, log, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	// The sweeper only deletes, so it needs no fallback store.
	guard := idempotency.NewGuard(idempotency.NewPostgresStore(pool), nil, idempotency.Options{
		TTL:     cfg.GetIdempotencyTTL(),
		LockTTL: cfg.GetIdempotencyLockTTL(),
	}, log)
	sweeper := idempotency.NewSweeper(guard, cfg.GetIdempotencySweepSpec(), log)
	if err := sweeper.Start(); err != nil {
		log.Error("failed to schedule idempotency sweep", "error", err)
		panic("failed to schedule idempotency sweep: " + err.Error())
	}
	defer sweeper.Stop()

	worker, err := scheduler.NewWorker(cfg, email.NewSender(cfg, log), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
