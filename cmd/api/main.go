package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/ratelimit"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/store"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", "", "path to a .env file (default: ./.env if present)")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx, *envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dependencies := map[string]handlers.Pinger{}

	backend, closeBackend, err := openBackend(ctx, cfg, logger, dependencies)
	if err != nil {
		logger.Fatal("failed to open record store", zap.Error(err))
	}
	defer closeBackend()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var limiter *ratelimit.LoginLimiter
	if redis != nil {
		dependencies["redis"] = redis
		limiter = ratelimit.NewLoginLimiter(ratelimit.NewRedisCounter(redis.Client), cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(logger, cfg.Notification, metrics)
	notifications := worker.StartNotificationWorker(ctx, dispatcher, notificationService, logger)

	userRepo := repository.NewUserRepository(backend)
	complaintRepo := repository.NewComplaintRepository(backend)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Limiter:      limiter,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: complaintRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	authMiddleware := auth.NewAuthMiddleware(auth.NewGuard(tokens, userRepo))
	validator := dto.NewValidator()

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Users:           handlers.NewUsersHandler(authService, validator),
		Complaints:      handlers.NewComplaintsHandler(complaintService, validator),
		AdminComplaints: handlers.NewAdminComplaintsHandler(complaintService),
		AuthMiddleware:  authMiddleware,
		Gatherer:        registry,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if notifications != nil {
		<-notifications.Done()
	}
}

// openBackend selects the record store backend and registers it for
// readiness checks.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, dependencies map[string]handlers.Pinger) (store.Backend, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		backend, err := store.NewPostgresBackend(pg.PoolHandle())
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		dependencies["postgres"] = pg
		return backend, pg.Close, nil
	case config.BackendMemory:
		logger.Warn("using in-memory record store; data is lost on exit")
		backend := store.NewMemoryBackend()
		dependencies["store"] = backend
		return backend, func() {}, nil
	case config.BackendFile:
		backend, err := store.NewFileBackend(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		dependencies["store"] = backend
		return backend, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
