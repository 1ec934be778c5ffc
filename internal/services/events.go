package services

import (
	"context"

	"ledger/internal/core"
)

//go:generate mockgen -source=events.go -destination=events_mock.go -package=services

// EventPublisher broadcasts ledger events. Publishing is best effort: a
// failure never undoes the change that triggered it.
type EventPublisher interface {
	PublishObligationDue(ctx context.Context, ev core.ObligationDue) error
	PublishImportCompleted(ctx context.Context, ev core.ImportCompleted) error
}
