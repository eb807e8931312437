// Package main is the entry point for the practice hub background worker.
//
// The worker owns the jobs that must not run in the request path:
// the nightly full recomputation sweep (which breaks lapsed streaks)
// and the optional progress cache warming. It shares the domain and
// application layers with the API server and talks to the same
// PostgreSQL and Redis instances.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalschool/practice-hub/config"
	"github.com/signalschool/practice-hub/internal/application/command"
	"github.com/signalschool/practice-hub/internal/application/eventhandler"
	"github.com/signalschool/practice-hub/internal/application/query"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
	"github.com/signalschool/practice-hub/internal/infrastructure/messaging"
	"github.com/signalschool/practice-hub/internal/infrastructure/persistence/postgres"
	"github.com/signalschool/practice-hub/internal/infrastructure/persistence/redis"
	"github.com/signalschool/practice-hub/internal/infrastructure/scheduler"
	"github.com/signalschool/practice-hub/internal/infrastructure/scheduler/jobs"
	"github.com/signalschool/practice-hub/internal/infrastructure/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Worker.Enabled {
		fmt.Fprintln(os.Stderr, "worker is disabled (WORKER_ENABLED=false), exiting")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)

	log.Info("starting practice hub worker",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Schema is managed by the API server; the worker only assumes it
	// exists and fails loudly on the first query if it does not.

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var progressCache *redis.ProgressCache
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureProgressCache) {
		log.Info("connecting to Redis...", "addr", cfg.Redis.Addr())
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("redis unavailable, cache jobs will be skipped", "error", err)
			redisCache = nil
		} else {
			defer func() {
				log.Info("closing redis connection...")
				_ = redisCache.Close()
			}()
			progressCache = redis.NewProgressCache(redisCache, cfg.Redis.CacheTTL)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	learnerRepo := postgres.NewLearnerRepository(dbConn)
	practiceRepo := postgres.NewPracticeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.AsyncMode = true

	var eventBus shared.EventBus
	var closeBus func() error
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureEventsRedisFanout) {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(redisCache.Client()),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("create redis event bus: %w", err)
		}
		eventBus = redisBus
		closeBus = redisBus.Close
	} else {
		memBus := messaging.NewInMemoryEventBus(busConfig)
		eventBus = memBus
		closeBus = memBus.Close
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeBus()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT HANDLERS
	// The nightly sweep is where lapsed streaks surface, so the streak
	// broken notification belongs to the worker.
	// ─────────────────────────────────────────────────────────────────────────
	notifier := service.NewLogNotifier(log)
	onStreakBroken := eventhandler.NewOnStreakBrokenHandler(notifier, log, eventhandler.DefaultStreakBrokenConfig())
	if err := eventBus.Subscribe(shared.EventStreakBroken, onStreakBroken.Handle); err != nil {
		return fmt.Errorf("subscribe streak broken handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	engine := progress.DefaultEngine()
	location := cfg.App.Location

	var invalidator command.CacheInvalidator
	var readCache query.ProgressCache
	if progressCache != nil {
		invalidator = progressCache
		readCache = progressCache
	}

	recomputeCmd := command.NewRecomputeProgressHandler(learnerRepo, practiceRepo, engine, eventBus, invalidator, location)
	getProgress := query.NewGetProgressHandler(learnerRepo, practiceRepo, engine, readCache, location)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultConfig()
	schedConfig.Location = location
	schedConfig.JobTimeout = cfg.Worker.JobTimeout
	schedConfig.Logger = log

	sched := scheduler.New(schedConfig)

	if cfg.Features.IsEnabled(config.FeatureWorkerNightlyRecompute) {
		nightly := jobs.NewRecomputeAllJob(recomputeCmd, log)
		if err := sched.ScheduleDaily(cfg.Worker.RecomputeHour, cfg.Worker.RecomputeMinute, nightly); err != nil {
			return fmt.Errorf("schedule nightly recompute: %w", err)
		}
	} else {
		log.Warn("nightly recompute is disabled by feature flag")
	}

	if progressCache != nil && cfg.Worker.CacheRefreshInterval > 0 {
		refresh := jobs.NewRefreshCacheJob(learnerRepo, getProgress, log)
		if err := sched.ScheduleEvery(cfg.Worker.CacheRefreshInterval, refresh); err != nil {
			return fmt.Errorf("schedule cache refresh: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sched.Start()
	log.Info("worker started",
		"recompute_at", fmt.Sprintf("%02d:%02d", cfg.Worker.RecomputeHour, cfg.Worker.RecomputeMinute),
		"cache_refresh_interval", cfg.Worker.CacheRefreshInterval.String(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled, shutting down")
	}

	// gocron lets the current run of each job finish before Stop returns.
	stopDone := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		log.Info("worker stopped cleanly")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timeout exceeded, exiting with jobs still running")
	}

	return nil
}

// setupLogger builds a slog logger according to the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", "practice-hub-worker")
}
