package services

import (
	"context"
	"fmt"

	"ledger/internal/bundle"
	applog "ledger/internal/log"
)

// Export builds the backup document for userID: the user without its
// secret, the categories visible to it, and its transactions and
// obligations.
func (s *LedgerService) Export(ctx context.Context, userID string) (bundle.Document, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return bundle.Document{}, fmt.Errorf("export: %w", err)
	}
	cats, err := s.VisibleCategories(ctx, userID)
	if err != nil {
		return bundle.Document{}, fmt.Errorf("export: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return bundle.Document{}, fmt.Errorf("export: %w", err)
	}
	obs, err := s.store.ListObligations(ctx, userID)
	if err != nil {
		return bundle.Document{}, fmt.Errorf("export: %w", err)
	}

	doc := bundle.Document{
		User:         bundle.ExportUser{ID: u.ID, Name: u.Name, Email: u.Email},
		Categories:   cats,
		Transactions: txns,
		Scheduled:    obs,
		ExportDate:   s.now().UTC(),
	}

	s.logger.InfoContext(ctx, "Export built",
		applog.NewFields().WithUser(userID).WithOperation(applog.OpExport).ToSlice()...)
	return doc, nil
}
