package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bizops/internal/app"
	"github.com/odyssey-erp/bizops/internal/identity"
	jobmetrics "github.com/odyssey-erp/bizops/internal/jobs"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/objectstore"
	"github.com/odyssey-erp/bizops/internal/platform/telemetry"
	"github.com/odyssey-erp/bizops/internal/reporting"
	"github.com/odyssey-erp/bizops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if err := telemetry.Init(ctx, cfg.Telemetry()); err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	retentionJob := jobs.NewWebhookRetentionJob(identity.NewPostgresStore(pool), logger, metrics)
	retentionTask, err := jobs.NewWebhookRetentionTask(cfg.WebhookRetention)
	if err != nil {
		return err
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskWebhookRetention, Handler: retentionJob.Handle},
	}

	if cfg.ExportBucket != "" {
		store, err := objectstore.New(ctx, cfg.ObjectStore())
		if err != nil {
			return err
		}
		exports := reporting.NewService(reporting.NewRepository(pool), nil, logger, reporting.WithUploader(store))
		archiveJob := jobs.NewExportArchiveJob(exports, logger, metrics)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskExportArchive, Handler: archiveJob.Handle})
	} else {
		logger.Warn("EXPORT_BUCKET not set, export archive tasks will stay queued")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron: []jobs.CronRegistration{
			{Spec: "20 3 * * *", Task: retentionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return err
	}
	logger.Info("worker started", slog.Int("handlers", len(handlers)))
	return worker.Run(ctx)
}
