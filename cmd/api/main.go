package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/maputo/user-service/internal/api/http"
	"github.com/maputo/user-service/internal/api/http/handlers"
	"github.com/maputo/user-service/internal/auth"
	"github.com/maputo/user-service/internal/config"
	"github.com/maputo/user-service/internal/events"
	"github.com/maputo/user-service/internal/observability"
	"github.com/maputo/user-service/internal/persistence"
	"github.com/maputo/user-service/internal/repository"
	"github.com/maputo/user-service/internal/service"
	"github.com/maputo/user-service/internal/storage"
	"github.com/maputo/user-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := observability.InitSentry(cfg.Sentry, cfg.App); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer observability.FlushSentry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewMemoryUserRepository()
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	}

	attempts, closeAttempts, err := newAttemptTracker(cfg.Auth, redis, logger)
	if err != nil {
		logger.Fatal("failed to init login attempt tracker", zap.Error(err))
	}
	defer closeAttempts()

	images, err := storage.NewImageStore(cfg.Storage, logger.Named("storage"))
	if err != nil {
		logger.Fatal("failed to init image store", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL())
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, cfg.Notification, logger)

	userService := service.NewUserService(cfg.Auth, service.UserDependencies{
		UserRepo:   userRepo,
		Attempts:   attempts,
		Tokens:     tokens,
		Images:     images,
		Dispatcher: dispatcher,
		Logger:     logger.Named("users"),
	})

	metrics := observability.NewMetrics()
	loginLimit, err := httptransport.NewLoginRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginRateBurst, metrics)
	if err != nil {
		logger.Fatal("failed to init login rate limiter", zap.Error(err))
	}
	defer loginLimit.Close()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	})
	usersHandler := handlers.NewUsersHandler(userService, images, cfg.Auth.TokenHeader)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     healthHandler,
		Users:      usersHandler,
		AuthFilter: auth.NewAuthFilter(tokens, logger.Named("auth")),
		LoginLimit: loginLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func newAttemptTracker(cfg config.AuthConfig, redis *persistence.Redis, logger *zap.Logger) (auth.AttemptTracker, func(), error) {
	trackerCfg := auth.AttemptTrackerConfig{
		MaxAttempts: cfg.LoginMaxAttempts,
		TTL:         cfg.LoginAttemptTTL(),
		Capacity:    cfg.LoginAttemptCapacity,
	}

	if cfg.LoginAttemptBackend == config.LoginAttemptBackendRedis {
		if !redis.Enabled() {
			logger.Warn("redis login attempt backend requested without REDIS_ADDR; using memory")
		} else {
			logger.Info("login attempts tracked in redis")
			return auth.NewRedisAttemptTracker(redis.Client, trackerCfg), func() {}, nil
		}
	}

	tracker, err := auth.NewMemoryAttemptTracker(trackerCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("login attempts tracked in memory", zap.Int64("capacity", trackerCfg.Capacity))
	return tracker, tracker.Close, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
