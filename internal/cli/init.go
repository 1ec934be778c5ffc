// Package cli holds the start-up steps shared by the ledger commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/config"
	applog "ledger/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error; variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. An unknown level falls back to info.
func SetupLogger(level, format string, out io.Writer) *applog.Logger {
	lvl, levelErr := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Format:    format,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Falling back to info level", applog.FieldError, levelErr)
	}
	return logger
}

// LoadAndValidateConfig reads the environment into a Config and validates
// it. The Config is returned even when invalid so callers can still set up
// logging before reporting the error.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	return cfg, cfg.Validate()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// GracefulShutdown runs each step with a shared deadline and reports every
// failure. Steps run in order even when an earlier one fails.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown, "timeout", timeout.String())
	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Shutdown finished with errors", applog.FieldError, err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// Exit logs err and terminates the process with status 1.
func Exit(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldError, err)
	os.Exit(1)
}
