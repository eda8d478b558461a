package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/virtuallab/virtuallab/internal/app"
	jobmetrics "github.com/virtuallab/virtuallab/internal/jobs"
	"github.com/virtuallab/virtuallab/internal/platform/cache"
	"github.com/virtuallab/virtuallab/internal/platform/db"
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

	metrics := jobmetrics.NewMetrics(nil)
	tasks := jobs.NewTasks(pool, redisClient, logger, metrics)

	pruneTask, err := jobs.NewActivityPruneTask(jobs.ActivityPrunePayload{RetainDays: 180})
	if err != nil {
		logger.Error("build prune task", "err", err)
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Tasks:     tasks,
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewSessionCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", "err", err)
		os.Exit(1)
	}

	logger.Info("worker starting", "redis", cfg.RedisAddr)
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
