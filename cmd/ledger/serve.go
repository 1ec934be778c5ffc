package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var noReminders bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API and the reminder worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				return serve(cmd.Context(), b, !noReminders)
			})
		},
	}
	cmd.Flags().BoolVar(&noReminders, "no-reminders", false, "do not start the due-soon reminder worker")
	return cmd
}

func serve(ctx context.Context, b *backend.Backend, reminders bool) error {
	srv := apphttp.NewServer(":"+appCfg.Port, apphttp.Deps{
		Ledger:          b.Ledger,
		Users:           b.Users,
		Sheets:          b.Sheets,
		Backups:         b.Backups,
		DueSoonDays:     appCfg.DueSoonHorizonDays,
		WritesPerMinute: appCfg.WritesPerMinute,
		Logger:          logger.WithComponent(applog.ComponentHTTP),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", appCfg.Port,
			"backend", appCfg.DataBackend,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if reminders {
		w := worker.NewReminderWorker(b.Ledger, b.Publisher, appCfg.DueSoonHorizonDays, appCfg.ReminderScanInterval)
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return cli.GracefulShutdown(logger, shutdownTimeout, srv.Shutdown)
	})

	return g.Wait()
}
