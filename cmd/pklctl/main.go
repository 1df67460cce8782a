package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sipkl/internal/app"
	"sipkl/internal/config"
	"sipkl/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := commandLine{
		cfg: cfg,
		out: os.Stdout,
		open: func(ctx context.Context) (*app.App, error) {
			return app.Open(ctx, cfg, logger)
		},
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("Command failed", zap.Error(err))
		}
		stop()
		os.Exit(1)
	}
}
