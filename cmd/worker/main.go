package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sipkl/internal/app"
	"sipkl/internal/autoalpha"
	"sipkl/internal/config"
	"sipkl/internal/logging"
	"sipkl/internal/queue"
	"sipkl/internal/scheduler"
)

// Worker schedules the daily auto alpha job and runs it when it is consumed.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Startup failed", zap.Error(err))
	}
	defer a.Close()

	daily, err := scheduler.NewDaily(cfg.ScheduleAt, a.Zone, nil, a.Queue, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("Invalid schedule", zap.Error(err))
	}
	go func() {
		if err := daily.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	messages, err := a.Queue.Consume(ctx)
	if err != nil {
		logger.Fatal("Queue consume init failed", zap.Error(err))
	}

	logger.Info("Worker started, waiting for jobs")
	process(ctx, a.Reconciler(), messages, logger)
	logger.Info("Worker stopped")
}

type runner interface {
	Run(ctx context.Context) (autoalpha.Result, error)
}

func process(ctx context.Context, rec runner, messages <-chan queue.Message, logger *zap.Logger) {
	for msg := range messages {
		if msg.Type != queue.TypeAutoAlpha {
			logger.Warn("Skipping unknown job", zap.String("type", msg.Type))
			continue
		}

		res, err := rec.Run(ctx)
		switch {
		case errors.Is(err, autoalpha.ErrRunInProgress):
			logger.Info("Auto alpha already running elsewhere, job dropped")
		case err != nil:
			logger.Error("Auto alpha job failed", zap.ByteString("job", msg.Body), zap.Error(err))
		default:
			logger.Info("Auto alpha job done",
				zap.String("message", res.Message),
				zap.Int("processed", res.Processed),
				zap.Time("enqueued_at", msg.EnqueuedAt))
		}
	}
}
