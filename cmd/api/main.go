// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/account"
	"github.com/carterperez-dev/pipeline-crm/internal/admin"
	"github.com/carterperez-dev/pipeline-crm/internal/alerts"
	"github.com/carterperez-dev/pipeline-crm/internal/analytics"
	"github.com/carterperez-dev/pipeline-crm/internal/auth"
	"github.com/carterperez-dev/pipeline-crm/internal/config"
	"github.com/carterperez-dev/pipeline-crm/internal/contact"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/export"
	"github.com/carterperez-dev/pipeline-crm/internal/health"
	"github.com/carterperez-dev/pipeline-crm/internal/jobs"
	"github.com/carterperez-dev/pipeline-crm/internal/middleware"
	"github.com/carterperez-dev/pipeline-crm/internal/opportunity"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
	"github.com/carterperez-dev/pipeline-crm/internal/server"
	"github.com/carterperez-dev/pipeline-crm/internal/task"
	"github.com/carterperez-dev/pipeline-crm/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair and exit")
	flag.Parse()

	if *generateKeys {
		if err := writeKeys(*configPath); err != nil {
			slog.Error("generate keys", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	var metrics *core.Metrics
	if cfg.Metrics.Enabled {
		metrics = core.NewMetrics(cfg.Metrics.Namespace)
		metrics.WatchPools(db.DB.DB, redis.PoolStats)
	}

	guard := access.NewGuard(logger, metrics)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	hasher := core.NewPasswordHasher(core.Argon2Params{
		Memory:  cfg.Password.MemoryKiB,
		Time:    cfg.Password.Iterations,
		Threads: cfg.Password.Parallelism,
	})
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis.Client, hasher)
	authHandler := auth.NewHandler(authSvc)

	opportunityRepo := opportunity.NewRepository(db.DB)
	opportunitySvc := opportunity.NewService(opportunityRepo, guard, userSvc, metrics, logger)
	opportunityHandler := opportunity.NewHandler(opportunitySvc, guard)

	accountSvc := account.NewService(account.NewRepository(db.DB), guard, userSvc)
	accountHandler := account.NewHandler(accountSvc, guard)

	contactSvc := contact.NewService(contact.NewRepository(db.DB), guard)
	contactHandler := contact.NewHandler(contactSvc, guard)

	taskSvc := task.NewService(task.NewRepository(db.DB), guard, userSvc)
	taskHandler := task.NewHandler(taskSvc, guard)

	exportHandler := export.NewHandler(export.NewService(opportunitySvc, guard), guard)

	analyticsSvc := analytics.NewService(analytics.NewRepository(db.DB), guard)
	analyticsHandler := analytics.NewHandler(analyticsSvc, guard)

	alertsSvc := alerts.NewService(alerts.ServiceConfig{
		Tasks:   taskSvc,
		Deals:   opportunityRepo,
		Redis:   redis.Client,
		Guard:   guard,
		Metrics: metrics,
		Logger:  logger,
		Alerts:  cfg.Alerts,
	})
	alertsHandler := alerts.NewHandler(alertsSvc, guard)

	healthHandler := health.NewHandler(
		health.Probe{Name: "database", Checker: db, Critical: true},
		health.Probe{Name: "redis", Checker: redis, Critical: true},
		health.Probe{Name: "alerts_cache", Checker: health.CheckFunc(alertsSvc.CacheReady)},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Repository: admin.NewRepository(db.DB),
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Alerts:     alertsSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
		Tracing:       telemetry != nil,
		ServiceName:   cfg.Otel.ServiceName,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	if metrics != nil {
		router.Use(middleware.Metrics(metrics))
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	if metrics != nil {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authenticator := authenticated(authSvc, redis.Client)
	editAll := middleware.RequirePermission(policy.PermEditAll)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, editAll)
		adminHandler.RegisterRoutes(r, authenticator, editAll)

		opportunityHandler.RegisterRoutes(r, authenticator)
		accountHandler.RegisterRoutes(r, authenticator)
		contactHandler.RegisterRoutes(r, authenticator)
		taskHandler.RegisterRoutes(r, authenticator)
		exportHandler.RegisterRoutes(r, authenticator)
		analyticsHandler.RegisterRoutes(r, authenticator)
		alertsHandler.RegisterRoutes(r, authenticator)
	})

	scheduler := jobs.NewScheduler(logger, metrics)
	if cfg.Jobs.Enabled {
		for _, j := range jobs.Defaults(cfg, alertsSvc, authSvc, logger) {
			if err := scheduler.Add(j); err != nil {
				return err
			}
		}
		scheduler.Start()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// authenticated verifies the access token and then applies the caller's
// per-role rate limit.
func authenticated(
	verifier middleware.TokenVerifier,
	rdb *goredis.Client,
) func(http.Handler) http.Handler {
	authenticate := middleware.Authenticator(verifier)
	limit := middleware.RoleRateLimiter(rdb, middleware.DefaultRoleLimits)

	return func(next http.Handler) http.Handler {
		return authenticate(limit(next))
	}
}

func writeKeys(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}

	slog.Info("key pair written",
		"private", cfg.JWT.PrivateKeyPath,
		"public", cfg.JWT.PublicKeyPath,
	)
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
