// Package main - точка входа для REST API сервера Campus Placement Hub.
//
// Сервер обслуживает полный жизненный цикл плейсмент-драйвов:
// - Создание драйвов и критериев отбора
// - Приём заявок студентов с проверкой допуска
// - Загрузка shortlist-таблиц и ведение фаз отбора
// - Завершение драйвов и фиксация финального отбора
//
// Архитектура: DDD + CQRS
// - Domain: drive, student, shared
// - Application: command handlers (write), query handlers (read)
// - Infrastructure: PostgreSQL, Redis, roster ingestion, messaging
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/placement-cell/campus-placement-hub/config"
	"github.com/placement-cell/campus-placement-hub/internal/application/command"
	"github.com/placement-cell/campus-placement-hub/internal/application/query"
	"github.com/placement-cell/campus-placement-hub/internal/domain/drive"
	"github.com/placement-cell/campus-placement-hub/internal/domain/student"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/messaging"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/persistence/postgres"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/persistence/redis"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/roster"
	"github.com/placement-cell/campus-placement-hub/internal/infrastructure/service"
	httpserver "github.com/placement-cell/campus-placement-hub/internal/interface/http"
	"github.com/placement-cell/campus-placement-hub/internal/interface/http/handlers"
	"github.com/placement-cell/campus-placement-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env нужен только для локальной разработки, в проде переменные
	// приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Campus Placement Hub API",
		"env", string(cfg.App.Environment),
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
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
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var driveCache drive.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			driveCache = redis.NewDriveCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	driveRepo := postgres.NewDriveRepository(dbConn)

	var directory student.Directory = postgres.NewStudentDirectory(dbConn)
	if redisCache != nil {
		// Ростер-загрузки бьют по одним и тем же студентам - read-through
		// кеш снимает основную нагрузку с directory-запросов
		directory = redis.NewCachedDirectory(directory, redisCache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS И DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))

	notificationSvc := service.NewNotificationService(service.NewLogSender(log), log)
	if err := notificationSvc.RegisterHandlers(dispatcher); err != nil {
		return fmt.Errorf("failed to register notification handlers: %w", err)
	}

	if driveCache != nil {
		invalidator := service.NewCacheInvalidator(driveCache, log)
		if err := invalidator.RegisterHandlers(dispatcher); err != nil {
			return fmt.Errorf("failed to register cache invalidation handlers: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ROSTER INGESTION
	// ─────────────────────────────────────────────────────────────────────────
	rosterConfig := roster.DefaultConfig()
	rosterConfig.ResolveTimeout = cfg.Roster.ResolveTimeout
	rosterConfig.MaxRows = cfg.Roster.MaxRows
	rosterConfig.Logger = log
	ingestor := roster.NewIngestor(directory, rosterConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ ОБРАБОТЧИКОВ (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing command and query handlers...")
	idGen := service.NewIDGenerator()

	createDriveHandler := command.NewCreateDriveHandler(driveRepo, idGen, eventBus)
	applyHandler := command.NewApplyHandler(driveRepo, directory, eventBus)
	addPhaseHandler := command.NewAddPhaseHandler(driveRepo, ingestor, eventBus)
	endDriveHandler := command.NewEndDriveHandler(driveRepo, ingestor, eventBus)
	setStatusHandler := command.NewSetStatusHandler(driveRepo, eventBus)
	shortlistHandler := command.NewShortlistHandler(driveRepo, directory, eventBus)

	listDrivesHandler := query.NewListDrivesHandler(driveRepo, driveCache)
	getDriveHandler := query.NewGetDriveHandler(driveRepo, driveCache)
	eligibleDrivesHandler := query.NewEligibleDrivesHandler(driveRepo, directory, driveCache)
	getApplicantsHandler := query.NewGetApplicantsHandler(driveRepo, directory)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	serverConfig.MaxUploadBytes = cfg.HTTP.MaxUploadBytes
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.EnableMetrics = cfg.HTTP.EnableMetrics

	httpLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		CreateDriveHandler:    createDriveHandler,
		ApplyHandler:          applyHandler,
		AddPhaseHandler:       addPhaseHandler,
		EndDriveHandler:       endDriveHandler,
		SetStatusHandler:      setStatusHandler,
		ShortlistHandler:      shortlistHandler,
		ListDrivesHandler:     listDrivesHandler,
		GetDriveHandler:       getDriveHandler,
		EligibleDrivesHandler: eligibleDrivesHandler,
		GetApplicantsHandler:  getApplicantsHandler,
		TemplateBuilder:       roster.BuildTemplate,
		Logger:                httpLog,
		HealthChecker:         healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("Campus Placement Hub API is running",
		"address", serverConfig.Address(),
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slogLevel(cfg.Observability.LogLevel),
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
