package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-slot-service/internal/api/http"
	"github.com/spec-kit/task-slot-service/internal/api/http/handlers"
	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/events"
	"github.com/spec-kit/task-slot-service/internal/observability"
	"github.com/spec-kit/task-slot-service/internal/persistence"
	"github.com/spec-kit/task-slot-service/internal/repository"
	"github.com/spec-kit/task-slot-service/internal/service"
	"github.com/spec-kit/task-slot-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
	} else {
		logger.Warn("running with in-memory store; data will not survive restarts")
		store = repository.NewMemStore()
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, store)
	taskService := service.NewTaskService(cfg.Slots, service.TaskDependencies{
		Store:      store,
		Dispatcher: dispatcher,
	})
	slotService := service.NewSlotService(cfg.Slots, store, redis, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartEventWorkers(notificationService, slotService)

	if err := slotService.EnsureRegions(ctx); err != nil {
		logger.Fatal("failed to initialize slot ledger", zap.Error(err))
	}
	if cfg.Seed.CertifierName != "" {
		if err := authService.EnsureSeedCertifier(ctx, cfg.Seed.CertifierName, cfg.Seed.CertifierPassword); err != nil {
			logger.Fatal("failed to seed certifier", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService),
		CertifierTasks: handlers.NewCertifierTasksHandler(taskService),
		Slots:          handlers.NewSlotsHandler(slotService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
