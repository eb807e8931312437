// Package main is the entry point for the practice hub API server.
//
// The server exposes the REST API for recording practice sessions and
// reading derived progress: streaks, levels, points and achievements.
// All statistics are re-derived from the append-only practice history
// on every write, never patched incrementally.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure derivation logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, cache, external scoring API
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalschool/practice-hub/config"
	"github.com/signalschool/practice-hub/internal/application/command"
	"github.com/signalschool/practice-hub/internal/application/eventhandler"
	"github.com/signalschool/practice-hub/internal/application/query"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
	"github.com/signalschool/practice-hub/internal/infrastructure/external/speech"
	"github.com/signalschool/practice-hub/internal/infrastructure/messaging"
	"github.com/signalschool/practice-hub/internal/infrastructure/persistence/postgres"
	"github.com/signalschool/practice-hub/internal/infrastructure/persistence/redis"
	"github.com/signalschool/practice-hub/internal/infrastructure/service"
	httpserver "github.com/signalschool/practice-hub/internal/interface/http"
	"github.com/signalschool/practice-hub/internal/interface/http/handlers"
	"github.com/signalschool/practice-hub/pkg/logger"
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
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting practice hub server",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
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
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var progressCache *redis.ProgressCache

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureProgressCache) {
		log.Info("connecting to Redis...")
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
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache, cfg.Redis.CacheTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	learnerRepo := postgres.NewLearnerRepository(dbConn)
	practiceRepo := postgres.NewPracticeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
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
			return fmt.Errorf("failed to create redis event bus: %w", err)
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
	// 8. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	notifier := service.NewLogNotifier(log)

	onAchievement := eventhandler.NewOnAchievementUnlockedHandler(notifier, log, eventhandler.DefaultAchievementUnlockedConfig())
	onLevelUp := eventhandler.NewOnLevelUpHandler(notifier, log, eventhandler.DefaultLevelUpConfig())
	onStreakBroken := eventhandler.NewOnStreakBrokenHandler(notifier, log, eventhandler.DefaultStreakBrokenConfig())

	if err := eventBus.Subscribe(shared.EventAchievementUnlocked, onAchievement.Handle); err != nil {
		return fmt.Errorf("subscribe achievement handler: %w", err)
	}
	if err := eventBus.Subscribe(shared.EventLevelUp, onLevelUp.Handle); err != nil {
		return fmt.Errorf("subscribe level up handler: %w", err)
	}
	if err := eventBus.Subscribe(shared.EventStreakBroken, onStreakBroken.Handle); err != nil {
		return fmt.Errorf("subscribe streak broken handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	var scoringClient *speech.Client
	if cfg.Scoring.BaseURL != "" {
		log.Info("initializing scoring client...", "base_url", cfg.Scoring.BaseURL)
		scoringCfg := speech.DefaultClientConfig(cfg.Scoring.BaseURL)
		scoringCfg.APIKey = cfg.Scoring.APIKey
		scoringCfg.Timeout = cfg.Scoring.RequestTimeout
		scoringCfg.Logger = log
		scoringCfg.Debug = cfg.App.Debug
		scoringClient = speech.NewClient(scoringCfg)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")
	engine := progress.DefaultEngine()
	location := cfg.App.Location

	// The concrete *redis.ProgressCache cannot be passed as a nil
	// interface directly, only as a typed nil. Keep the interfaces nil
	// when Redis is unavailable.
	var invalidator command.CacheInvalidator
	var readCache query.ProgressCache
	if progressCache != nil {
		invalidator = progressCache
		readCache = progressCache
	}

	recordPracticeCmd := command.NewRecordPracticeHandler(learnerRepo, practiceRepo, engine, eventBus, invalidator, location)
	registerLearnerCmd := command.NewRegisterLearnerHandler(learnerRepo, eventBus, location)
	progressQuery := query.NewGetProgressHandler(learnerRepo, practiceRepo, engine, readCache, location)
	achievementsQuery := query.NewGetAchievementsHandler(learnerRepo, practiceRepo, engine, location)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKER
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}
	if scoringClient != nil && cfg.Features.IsEnabled(config.FeatureScoringHealthCheck) {
		healthChecker.AddCheck("scoring", handlers.NewScoringCheck(scoringClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.Server.Host
	httpConfig.Port = cfg.Server.Port
	httpConfig.ReadTimeout = cfg.Server.ReadTimeout
	httpConfig.WriteTimeout = cfg.Server.WriteTimeout
	httpConfig.IdleTimeout = cfg.Server.IdleTimeout
	httpConfig.EnableCORS = cfg.Server.EnableCORS
	httpConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.Server.APIKeyHeader
	httpConfig.APIKeys = cfg.Server.APIKeys
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

	httpDeps := httpserver.Dependencies{
		RecordPracticeHandler:  recordPracticeCmd,
		RegisterLearnerHandler: registerLearnerCmd,
		GetProgressHandler:     progressQuery,
		GetAchievementsHandler: achievementsQuery,
		Logger:                 setupHTTPLogger(cfg),
		HealthChecker:          healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()

	log.Info("practice hub server is running", "http_address", httpServer.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging for the process.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" && !cfg.IsProduction() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// JSON in production, better for log aggregators
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// setupHTTPLogger configures the request logger used by the HTTP layer.
func setupHTTPLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
