package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/virtuallab/virtuallab/internal/app"
	"github.com/virtuallab/virtuallab/internal/auth"
	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/dashboard"
	"github.com/virtuallab/virtuallab/internal/observability"
	"github.com/virtuallab/virtuallab/internal/platform/cache"
	"github.com/virtuallab/virtuallab/internal/platform/db"
	"github.com/virtuallab/virtuallab/internal/shared"
	"github.com/virtuallab/virtuallab/internal/students"
	"github.com/virtuallab/virtuallab/internal/users"
	"github.com/virtuallab/virtuallab/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Info("test mode enabled, exiting")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, "virtuallab_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	activityLog := shared.NewActivityLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, activityLog, metrics)

	authzMiddleware := authz.Middleware{
		Source:  authService,
		Logger:  logger,
		Metrics: metrics,
	}
	permissionsHandler := authz.NewHandler(logger, authzMiddleware)

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool), activityLog), authzMiddleware)
	studentsHandler := students.NewHandler(logger, students.NewService(students.NewRepository(pool)), authzMiddleware)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("dashboard cache invalidation listener", "err", err)
	}
	dashboardHandler := dashboard.NewHandler(logger, dashboard.NewService(dashboard.NewRepository(pool), dashboardCache), authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,

		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		UsersHandler:       usersHandler,
		StudentsHandler:    studentsHandler,
		DashboardHandler:   dashboardHandler,
		JobsHandler:        jobsHandler,

		AuthzMiddleware: authzMiddleware,
		Metrics:         metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.AppAddr, "env", cfg.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "err", err)
	}
	logger.Info("stopped")
}
