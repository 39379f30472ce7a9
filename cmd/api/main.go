package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"production_backend/internal/adapters"
	"production_backend/internal/adapters/storage"
	"production_backend/internal/designjobs"
	"production_backend/internal/events"
	"production_backend/internal/exports"
	apphttp "production_backend/internal/http"
	"production_backend/internal/http/router"
	"production_backend/internal/idempotency"
	"production_backend/internal/notification"
	"production_backend/internal/orders"
	"production_backend/internal/purchasing"
	"production_backend/internal/realtime"
	"production_backend/internal/scheduler"
	"production_backend/internal/search"
	"production_backend/internal/workflow"
	"production_backend/internal/workforce"
	"production_backend/internal/workorders"
	"production_backend/migrations"
	"production_backend/platform/config"
	"production_backend/platform/db"
	"production_backend/platform/logger"
	"production_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := db.Connect(ctx, log, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	rdb := initRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	transitions := workflow.Default()

	guard := idempotency.NewGuard(
		idempotency.NewPostgresStore(pool),
		idempotency.NewMemoryStore(),
		idempotency.Options{
			TTL:         cfg.GetIdempotencyTTL(),
			LockTTL:     cfg.GetIdempotencyLockTTL(),
			WaitTimeout: cfg.GetIdempotencyWaitTimeout(),
		},
		log,
	)
	// The in-process fallback store only empties when this instance sweeps it.
	sweeper := idempotency.NewSweeper(guard, cfg.GetIdempotencySweepSpec(), log)
	if err := sweeper.Start(); err != nil {
		log.Error("failed to schedule idempotency sweep", "error", err)
		panic("failed to schedule idempotency sweep: " + err.Error())
	}
	defer sweeper.Stop()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	workforceModule := workforce.NewModule(pool, val)
	ordersModule := orders.NewModule(pool, eventBus, val, log)

	designJobsModule := designjobs.NewModule(
		pool,
		adapters.NewOrderItemsForDesign(ordersModule.Service()),
		adapters.NewDesignerDirectory(workforceModule.Service()),
		transitions,
		eventBus,
		val,
		log,
	)
	initAssetStorage(ctx, cfg, log, designJobsModule)

	workOrdersModule := workorders.NewModule(
		pool,
		adapters.NewDesignJobsForProduction(designJobsModule.Service()),
		adapters.NewManufacturerDirectory(workforceModule.Service()),
		adapters.NewWorkOrderMaterials(workforceModule.Service()),
		transitions,
		eventBus,
		val,
		log,
	)

	purchasingModule := purchasing.NewModule(
		pool,
		adapters.NewPurchasingCatalog(workforceModule.Service()),
		transitions,
		eventBus,
		val,
		log,
	)

	searchModule := search.NewModule(pool, val)
	exportsModule := exports.NewModule(pool)

	realtimeModule := realtime.NewModule(cfg, cfg, rdb, log)
	if err := realtimeModule.Start(ctx); err != nil {
		log.Error("failed to start realtime relay", "error", err)
		panic("failed to start realtime relay: " + err.Error())
	}

	emailQueue, closeQueue := initEmailQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	notificationModule := notification.NewModule(pool, cfg, notification.Deps{
		Transport:  realtimeModule.Transport(),
		Recipients: workforceModule.Service(),
		Contacts:   workforceModule.Service(),
		Emails:     emailQueue,
	}, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:     cfg,
		Logger:     log,
		Health:     db.NewPoolAdapter(pool),
		EventBus:   eventBus,
		Idempotent: guard.Middleware(),
		Modules: []apphttp.Module{
			workforceModule,
			ordersModule,
			designJobsModule,
			workOrdersModule,
			purchasingModule,
			searchModule,
			exportsModule,
			realtimeModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis connects the realtime relay. Without REDIS_URL delivery stays
// local to this instance.
func initRedis(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; realtime delivery is single-instance")
		return nil
	}
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev brokers
	}
	client := redis.NewClient(opts)
	if err := db.WithRetry(ctx, log, "redis connection", 5, time.Second, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	return client
}

func initAssetStorage(ctx context.Context, cfg *config.Config, log *logger.Logger, module *designjobs.Module) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; design asset uploads disabled")
		return
	}
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := db.WithRetry(ctx, log, "ensure design asset bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketDesignAssets())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	module.SetAssetStorage(adapters.NewDesignAssetStorage(storageSvc))
	log.Info("storage service initialized", "designAssetsBucket", cfg.GetMinioBucketDesignAssets())
}

func initEmailQueue(cfg *config.Config, log *logger.Logger) (scheduler.EmailQueue, func()) {
	if !cfg.GetEmailEnabled() {
		return nil, nil
	}
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notification emails disabled")
		return nil, nil
	}
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize email queue client", "error", err)
		return nil, nil
	}
	return client, func() {
		_ = client.Close()
	}
}
