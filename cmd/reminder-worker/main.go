// Command reminder-worker periodically scans every user's obligations and
// publishes a reminder for each one entering the due-soon window.
package main

import (
	"context"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.Default(applog.ComponentWorker).Warn("Ignoring env file", applog.FieldError, err)
	}

	cfg, cfgErr := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).WithComponent(applog.ComponentWorker)
	if cfgErr != nil {
		cli.Exit(logger, "Configuration validation failed", cfgErr)
	}

	logger.Info("Starting reminder-worker",
		"backend", cfg.DataBackend,
		"horizon_days", cfg.DueSoonHorizonDays,
		"interval", cfg.ReminderScanInterval.String())

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Exit(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bc)
	if err != nil {
		cli.Exit(logger, "Failed to initialize backend", err)
	}
	if res.Backend.Publisher == nil {
		logger.Warn("AMQP disabled - reminders are only logged")
	}

	w := worker.NewReminderWorker(res.Backend.Ledger, res.Backend.Publisher, cfg.DueSoonHorizonDays, cfg.ReminderScanInterval)
	_ = w.Run(ctx)

	if err := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) error {
		return res.Cleanup()
	}); err != nil {
		os.Exit(1)
	}
}
