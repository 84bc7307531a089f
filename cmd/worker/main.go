package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/vetoapp23/vetoapp/internal/app"
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
	"github.com/vetoapp23/vetoapp/internal/treatment"
	"github.com/vetoapp23/vetoapp/jobs"
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

	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	protocolSvc, err := protocol.NewService(ctx, store, logger)
	if err != nil {
		logger.Error("init protocol service", slog.Any("error", err))
		os.Exit(1)
	}
	stockSvc, err := stock.NewService(ctx, store, logger)
	if err != nil {
		logger.Error("init stock service", slog.Any("error", err))
		os.Exit(1)
	}
	treatmentSvc, err := treatment.NewService(ctx, store, logger, protocolSvc, stockSvc)
	if err != nil {
		logger.Error("init treatment service", slog.Any("error", err))
		os.Exit(1)
	}

	digestJob := jobs.NewReminderDigestJob(treatmentSvc, logger)
	digestTask, err := jobs.NewReminderDigestTask(jobs.ReminderDigestPayload{WindowDays: cfg.ReminderWindowDays})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReminderDigest, Handler: digestJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReminderDigestCron, Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
