package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"ReelsAutoposter/internal/app"
	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("load config", "error", err)
		return 1
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		app.ReportStartupFailure(ctx, cfg, logger, err)
		return 1
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application", "error", err)
		app.ReportStartupFailure(ctx, cfg, logger, err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrRunLocked) {
			logger.Warn("another run is in progress", "error", err)
			return 0
		}
		logger.Error("application stopped", "error", err)
		return 1
	}
	return 0
}
