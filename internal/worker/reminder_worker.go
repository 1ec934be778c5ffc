// Package worker runs the periodic due-soon scan that turns upcoming
// obligations into reminder events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

// Scanner finds the unpaid obligations inside the reminder window.
type Scanner interface {
	Today() core.Date
	DueSoonForAll(ctx context.Context, horizonDays int) ([]core.ScheduledObligation, error)
}

// ReminderWorker publishes an ObligationDue event for every obligation in
// the due-soon window, at most once per obligation per day.
type ReminderWorker struct {
	scanner     Scanner
	publisher   services.EventPublisher
	horizonDays int
	interval    time.Duration
	logger      *applog.Logger

	mu   sync.Mutex
	day  core.Date
	sent map[string]bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReminderWorker builds a worker. A nil publisher only logs reminders.
func NewReminderWorker(scanner Scanner, publisher services.EventPublisher, horizonDays int, interval time.Duration) *ReminderWorker {
	return &ReminderWorker{
		scanner:     scanner,
		publisher:   publisher,
		horizonDays: horizonDays,
		interval:    interval,
		logger:      applog.Default(applog.ComponentWorker),
		sent:        make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// ScanOnce runs one scan and returns how many reminders went out. Publish
// failures are retried on the next scan.
func (w *ReminderWorker) ScanOnce(ctx context.Context) (int, error) {
	today := w.scanner.Today()
	due, err := w.scanner.DueSoonForAll(ctx, w.horizonDays)
	if err != nil {
		return 0, fmt.Errorf("scan due obligations: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.day.Equal(today) {
		w.day = today
		w.sent = make(map[string]bool)
	}

	sent := 0
	var errs []error
	for _, o := range due {
		if w.sent[o.ID] {
			continue
		}
		ev := core.ObligationDue{
			UserID:       o.UserID,
			ObligationID: o.ID,
			Description:  o.Description,
			CategoryID:   o.CategoryID,
			Amount:       o.Amount,
			DueDate:      o.DueDate,
			DaysLeft:     daysBetween(today, o.DueDate),
		}

		if w.publisher != nil {
			if err := w.publisher.PublishObligationDue(ctx, ev); err != nil {
				w.logger.WarnContext(ctx, "Failed to publish reminder",
					applog.FieldObligationID, o.ID, applog.FieldError, err)
				errs = append(errs, err)
				continue
			}
		}

		w.sent[o.ID] = true
		sent++
		w.logger.InfoContext(ctx, "Obligation due soon",
			applog.FieldUserID, o.UserID,
			applog.FieldObligationID, o.ID,
			applog.FieldAmountCents, o.Amount.Cents,
			"due_date", o.DueDate.String(),
			"days_left", ev.DaysLeft)
	}

	return sent, errors.Join(errs...)
}

func daysBetween(from, to core.Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// Start runs an initial scan and then one per interval until ctx is done
// or Stop is called.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

func (w *ReminderWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.logger.InfoContext(ctx, "Reminder worker started",
		"interval", w.interval.String(), "horizon_days", w.horizonDays)
	w.scan(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *ReminderWorker) scan(ctx context.Context) {
	n, err := w.ScanOnce(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Reminder scan failed", applog.FieldError, err, applog.FieldCount, n)
		return
	}
	w.logger.DebugContext(ctx, "Reminder scan complete", applog.FieldCount, n)
}

// Stop ends the loop and waits for it. It is safe to call when Start never ran.
func (w *ReminderWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	// A worker that never started has nothing to wait for.
	w.startOnce.Do(func() { close(w.doneCh) })
	<-w.doneCh
	w.logger.Info("Reminder worker stopped")
}

// Run starts the worker and blocks until ctx is done, then stops it.
func (w *ReminderWorker) Run(ctx context.Context) error {
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	return nil
}
