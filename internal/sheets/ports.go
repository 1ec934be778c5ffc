// Package sheets mirrors month summaries into a spreadsheet so they can be
// shared outside the ledger.
package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter appends one month overview for a user.
	SummaryWriter interface {
		WriteMonthOverview(ctx context.Context, userID string, o core.MonthOverview) (rowRef string, err error)
	}

	// SummaryReader returns the most recently written overview for a user
	// and month, or an empty overview when none was written.
	SummaryReader interface {
		ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	}
)
