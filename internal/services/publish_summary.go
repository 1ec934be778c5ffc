package services

import (
	"context"
	"fmt"

	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// PushMonthOverview computes the month overview and appends it to w.
func (s *LedgerService) PushMonthOverview(ctx context.Context, w sheets.SummaryWriter, userID string, year, month int) (string, error) {
	o, err := s.MonthOverview(ctx, userID, year, month)
	if err != nil {
		return "", err
	}
	ref, err := w.WriteMonthOverview(ctx, userID, o)
	if err != nil {
		return "", fmt.Errorf("push month overview: %w", err)
	}
	s.logger.InfoContext(ctx, "Month overview pushed",
		applog.NewFields().WithUser(userID).WithMonth(year, month).ToSlice()...)
	return ref, nil
}
