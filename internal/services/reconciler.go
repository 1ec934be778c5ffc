package services

import (
	"context"
	"fmt"
	"io"

	"ledger/internal/bundle"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// ImportWarning records an imported row whose category reference matched
// nothing. The row is kept with the literal reference.
type ImportWarning struct {
	Entity      string `json:"entity"`
	SourceID    string `json:"sourceId"`
	CategoryRef string `json:"categoryRef"`
}

func (w ImportWarning) Error() string {
	return fmt.Sprintf("%s %q: %v %q", w.Entity, w.SourceID, core.ErrUnresolvedCategoryReference, w.CategoryRef)
}

func (w ImportWarning) Unwrap() error { return core.ErrUnresolvedCategoryReference }

// ImportSummary reports what a committed import changed.
type ImportSummary struct {
	TransactionsImported int             `json:"transactionsImported"`
	ObligationsImported  int             `json:"obligationsImported"`
	NewCategoriesCreated int             `json:"newCategoriesCreated"`
	Warnings             []ImportWarning `json:"warnings,omitempty"`
}

// ReconcileJSON decodes an import document from r and reconciles it into
// userID's data.
func (s *LedgerService) ReconcileJSON(ctx context.Context, userID string, r io.Reader) (ImportSummary, error) {
	b, err := bundle.Decode(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %w", core.ErrMergeAborted, err)
	}
	return s.Reconcile(ctx, userID, b)
}

// Reconcile merges b into userID's data in a single store transaction.
//
// Categories are matched by case-insensitive name against the categories
// visible to the user; unmatched ones are created as the user's own. The
// user's transactions are then replaced by the bundle's, with fresh ids and
// category and parent references remapped. Obligations are replaced the
// same way, but only when the bundle carries a scheduled list. Any failure
// wraps core.ErrMergeAborted and leaves the store untouched.
func (s *LedgerService) Reconcile(ctx context.Context, userID string, b *bundle.Bundle) (ImportSummary, error) {
	var summary ImportSummary
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		summary = ImportSummary{}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("target user: %w", err)
		}

		all, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		known := visibleTo(all, userID)

		catMap, known, created, err := s.reconcileCategories(ctx, tx, userID, known, b.Categories)
		if err != nil {
			return err
		}
		summary.NewCategoriesCreated = created

		resolve := func(entity, sourceID, ref string) string {
			if id, ok := catMap[ref]; ok {
				return id
			}
			for _, c := range known {
				if c.ID == ref {
					return ref
				}
			}
			summary.Warnings = append(summary.Warnings, ImportWarning{Entity: entity, SourceID: sourceID, CategoryRef: ref})
			return ref
		}

		txns := s.remapTransactions(userID, b.Transactions, resolve)
		if err := tx.ReplaceUserTransactions(ctx, userID, txns); err != nil {
			return fmt.Errorf("replace transactions: %w", err)
		}
		summary.TransactionsImported = len(txns)

		if b.HasScheduled {
			obs := make([]core.ScheduledObligation, 0, len(b.Scheduled))
			for _, o := range b.Scheduled {
				obs = append(obs, core.ScheduledObligation{
					ID:          s.newID(),
					UserID:      userID,
					Amount:      o.Amount,
					Description: o.Description,
					CategoryID:  resolve("scheduled", o.SourceID, o.CategoryRef),
					DueDate:     o.DueDate,
					IsPaid:      o.IsPaid,
				})
			}
			if err := tx.ReplaceUserObligations(ctx, userID, obs); err != nil {
				return fmt.Errorf("replace obligations: %w", err)
			}
			summary.ObligationsImported = len(obs)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Import aborted",
			applog.NewFields().WithUser(userID).WithOperation(applog.OpImport).WithError(err).ToSlice()...)
		return ImportSummary{}, fmt.Errorf("%w: %w", core.ErrMergeAborted, err)
	}
	s.invalidateUser(userID)

	for _, w := range summary.Warnings {
		s.logger.WarnContext(ctx, "Unresolved category reference kept as literal",
			applog.FieldUserID, userID,
			applog.FieldEntityKind, w.Entity,
			applog.FieldEntityID, w.SourceID,
			applog.FieldCategoryID, w.CategoryRef)
	}
	s.logger.InfoContext(ctx, "Import completed",
		applog.FieldUserID, userID,
		"transactions", summary.TransactionsImported,
		"obligations", summary.ObligationsImported,
		"new_categories", summary.NewCategoriesCreated,
		"warnings", len(summary.Warnings))

	if s.publisher != nil {
		ev := core.ImportCompleted{
			UserID:               userID,
			TransactionsImported: summary.TransactionsImported,
			ObligationsImported:  summary.ObligationsImported,
			NewCategoriesCreated: summary.NewCategoriesCreated,
			Warnings:             len(summary.Warnings),
		}
		if err := s.publisher.PublishImportCompleted(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish import event", applog.FieldError, err)
		}
	}
	return summary, nil
}

// reconcileCategories inserts the incoming categories whose name is not yet
// known and maps every incoming source id to the id of the category it
// resolved to. Duplicates inside the bundle collapse onto the first one.
// The returned pool is known plus the categories created.
func (s *LedgerService) reconcileCategories(ctx context.Context, tx storage.Tx, userID string, known []core.Category, incoming []bundle.Category) (map[string]string, []core.Category, int, error) {
	catMap := make(map[string]string, len(incoming))
	pool := append([]core.Category(nil), known...)
	created := 0

	for _, in := range incoming {
		id, found := "", false
		for _, c := range pool {
			if core.SameCategoryName(c.Name, in.Name) {
				id, found = c.ID, true
				break
			}
		}
		if !found {
			c := core.Category{
				ID:      s.newID(),
				Name:    in.Name,
				Color:   in.Color,
				Type:    in.Type,
				OwnerID: userID,
			}
			if err := tx.CreateCategory(ctx, c); err != nil {
				return nil, nil, 0, fmt.Errorf("create category %q: %w", in.Name, err)
			}
			pool = append(pool, c)
			id = c.ID
			created++
		}
		if in.SourceID != "" {
			catMap[in.SourceID] = id
		}
	}
	return catMap, pool, created, nil
}

// remapTransactions assigns fresh ids and rewrites category and parent
// references. A legacy group's first row becomes the root and the rest
// point at it; a current-shape parentId follows the id map and keeps its
// literal value when the parent is not in the bundle.
func (s *LedgerService) remapTransactions(userID string, in []bundle.Transaction, resolve func(entity, sourceID, ref string) string) []core.Transaction {
	idMap := make(map[string]string, len(in))
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = core.Transaction{
			ID:              s.newID(),
			UserID:          userID,
			Type:            t.Type,
			Amount:          t.Amount,
			Description:     t.Description,
			CategoryID:      resolve("transaction", t.SourceID, t.CategoryRef),
			Date:            t.Date,
			IsRecurring:     t.IsRecurring,
			RecurringMonths: t.RecurringMonths,
		}
		if t.SourceID != "" {
			idMap[t.SourceID] = out[i].ID
		}
	}

	roots := make(map[string]string)
	for i, t := range in {
		switch {
		case t.Group != "":
			if root, ok := roots[t.Group]; ok {
				out[i].ParentID = root
			} else {
				roots[t.Group] = out[i].ID
			}
		case t.ParentRef != "":
			if id, ok := idMap[t.ParentRef]; ok {
				out[i].ParentID = id
			} else {
				out[i].ParentID = t.ParentRef
			}
		}
	}
	return out
}
