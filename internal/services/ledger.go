package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LedgerService is the entry point for every ledger mutation and query. It
// enforces referential integrity on top of the store and keeps the month
// summary cache coherent.
type LedgerService struct {
	store     storage.Store
	publisher EventPublisher
	summaries *cache.SummaryCache
	now       func() time.Time
	newID     IDGenerator
	logger    *applog.Logger
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithClock overrides the wall clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithIDGenerator overrides the entity id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *LedgerService) { s.newID = gen }
}

// WithSummaryCache memoises month overviews.
func WithSummaryCache(c *cache.SummaryCache) Option {
	return func(s *LedgerService) { s.summaries = c }
}

// WithPublisher enables event publishing.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: applog.Default(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the calendar date of the service clock.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now())
}

func (s *LedgerService) invalidateUser(userID string) {
	if s.summaries != nil {
		s.summaries.InvalidateUser(userID)
	}
}

func (s *LedgerService) invalidateAll() {
	if s.summaries != nil {
		s.summaries.InvalidateAll()
	}
}

func visibleTo(all []core.Category, userID string) []core.Category {
	out := make([]core.Category, 0, len(all))
	for _, c := range all {
		if c.VisibleTo(userID) {
			out = append(out, c)
		}
	}
	return out
}

// resolveCategory fails fast unless id names a category visible to userID.
func resolveCategory(ctx context.Context, r storage.Reader, userID, id string) (core.Category, error) {
	c, err := r.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("%w: %s", core.ErrUnknownCategory, id)
	}
	if !c.VisibleTo(userID) {
		return core.Category{}, fmt.Errorf("%w: %s", core.ErrUnknownCategory, id)
	}
	return c, nil
}

// Categories

// VisibleCategories lists the shared categories plus userID's own, in
// creation order.
func (s *LedgerService) VisibleCategories(ctx context.Context, userID string) ([]core.Category, error) {
	all, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return visibleTo(all, userID), nil
}

// CreateCategory stores c with a fresh id. Same-named categories are
// allowed here; only imports deduplicate by name.
func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = s.newID()
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category created",
		applog.NewFields().WithEntity("category", c.ID).WithUser(c.OwnerID).WithOperation(applog.OpCreate).ToSlice()...)
	return c, nil
}

// UpdateCategory replaces name, colour and type. Ownership never changes.
func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	existing.Name = c.Name
	existing.Color = c.Color
	existing.Type = c.Type
	if err := s.store.UpdateCategory(ctx, existing); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.invalidateAll()
	return existing, nil
}

// DeleteCategory removes a category nothing references. A referenced
// category fails with core.ErrCategoryInUse and nothing is deleted.
func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		n, err := tx.CountCategoryReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("category %s has %d references: %w", id, n, core.ErrCategoryInUse)
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidateAll()

	s.logger.InfoContext(ctx, "Category deleted", applog.FieldEntityID, id)
	return nil
}

// Transactions

// CreateTransaction stores tmpl. When tmpl.IsRecurring it is first expanded
// into months monthly instances, all written atomically.
func (s *LedgerService) CreateTransaction(ctx context.Context, tmpl core.Transaction, months int) ([]core.Transaction, error) {
	tmpl.ID = ""
	tmpl.ParentID = ""
	repeat := 1
	if tmpl.IsRecurring {
		repeat = repeatCount(months)
		tmpl.RecurringMonths = repeat
	} else {
		tmpl.RecurringMonths = 0
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	instances := ExpandTransaction(tmpl, repeat, s.newID)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := resolveCategory(ctx, tx, tmpl.UserID, tmpl.CategoryID); err != nil {
			return err
		}
		for _, t := range instances {
			if err := tx.CreateTransaction(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	s.invalidateUser(tmpl.UserID)

	s.logger.InfoContext(ctx, "Transaction created",
		applog.NewFields().
			WithUser(tmpl.UserID).
			WithEntity("transaction", instances[0].ID).
			WithAmount(tmpl.Amount.Cents).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	if len(instances) > 1 {
		s.logger.DebugContext(ctx, "Recurring instances generated", applog.FieldCount, len(instances))
	}
	return instances, nil
}

// UpdateTransaction edits one instance in place. Identity, owner and
// recurrence lineage are kept; siblings are not touched.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var updated core.Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.GetTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		t.UserID = existing.UserID
		t.ParentID = existing.ParentID
		if !t.IsRecurring {
			t.RecurringMonths = 0
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if _, err := resolveCategory(ctx, tx, t.UserID, t.CategoryID); err != nil {
			return err
		}
		updated = t
		return tx.UpdateTransaction(ctx, t)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidateUser(updated.UserID)
	return updated, nil
}

// DeleteTransaction removes exactly one instance.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidateUser(t.UserID)

	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldEntityID, id, applog.FieldUserID, t.UserID)
	return nil
}

// ListTransactions returns userID's transactions filtered and sorted by f.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.VisibleCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FilterTransactions(txns, cats, f), nil
}

// GetTransaction loads one transaction of userID. A transaction owned by
// someone else is reported as not found.
func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// Scheduled obligations

// ScheduleObligation stores months independent obligations due one month
// apart, starting at tmpl.DueDate. The category must be expense-type.
func (s *LedgerService) ScheduleObligation(ctx context.Context, tmpl core.ScheduledObligation, months int) ([]core.ScheduledObligation, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	instances := ExpandObligation(tmpl, months, s.newID)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := resolveCategory(ctx, tx, tmpl.UserID, tmpl.CategoryID)
		if err != nil {
			return err
		}
		if c.Type != core.Expense {
			return fmt.Errorf("%w: %s is %s", core.ErrCategoryType, c.ID, c.Type)
		}
		for _, o := range instances {
			if err := tx.CreateObligation(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule obligation: %w", err)
	}

	s.logger.InfoContext(ctx, "Obligations scheduled",
		applog.NewFields().
			WithUser(tmpl.UserID).
			WithAmount(tmpl.Amount.Cents).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	return instances, nil
}

// UpdateObligation edits amount, description, category and due date. The
// paid flag is kept as stored; PayObligation is the only way to set it.
func (s *LedgerService) UpdateObligation(ctx context.Context, o core.ScheduledObligation) (core.ScheduledObligation, error) {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.GetObligation(ctx, o.ID)
		if err != nil {
			return err
		}
		o.UserID = existing.UserID
		o.IsPaid = existing.IsPaid
		if err := o.Validate(); err != nil {
			return err
		}
		c, err := resolveCategory(ctx, tx, o.UserID, o.CategoryID)
		if err != nil {
			return err
		}
		if c.Type != core.Expense {
			return fmt.Errorf("%w: %s is %s", core.ErrCategoryType, c.ID, c.Type)
		}
		return tx.UpdateObligation(ctx, o)
	})
	if err != nil {
		return core.ScheduledObligation{}, fmt.Errorf("update obligation: %w", err)
	}
	return o, nil
}

func (s *LedgerService) DeleteObligation(ctx context.Context, id string) error {
	if err := s.store.DeleteObligation(ctx, id); err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	s.logger.InfoContext(ctx, "Obligation deleted", applog.FieldObligationID, id)
	return nil
}

// GetObligation loads one obligation of userID, hiding other users' ones.
func (s *LedgerService) GetObligation(ctx context.Context, userID, id string) (core.ScheduledObligation, error) {
	o, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return core.ScheduledObligation{}, fmt.Errorf("get obligation: %w", err)
	}
	if o.UserID != userID {
		return core.ScheduledObligation{}, fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	return o, nil
}

// PayObligation marks the obligation paid and records the matching expense
// dated today. Both writes commit together or not at all.
func (s *LedgerService) PayObligation(ctx context.Context, id string) (core.Transaction, error) {
	var paid core.Transaction
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		o, err := tx.GetObligation(ctx, id)
		if err != nil {
			return err
		}
		if o.IsPaid {
			return fmt.Errorf("obligation %s: %w", id, core.ErrAlreadyPaid)
		}

		o.IsPaid = true
		if err := tx.UpdateObligation(ctx, o); err != nil {
			return err
		}

		paid = core.Transaction{
			ID:          s.newID(),
			UserID:      o.UserID,
			Type:        core.Expense,
			Amount:      o.Amount,
			Description: o.Description,
			CategoryID:  o.CategoryID,
			Date:        s.Today(),
		}
		return tx.CreateTransaction(ctx, paid)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("pay obligation: %w", err)
	}
	s.invalidateUser(paid.UserID)

	s.logger.InfoContext(ctx, "Obligation paid",
		applog.NewFields().
			WithUser(paid.UserID).
			WithEntity("transaction", paid.ID).
			WithAmount(paid.Amount.Cents).
			WithOperation(applog.OpPay).
			ToSlice()...)
	return paid, nil
}

// ObligationsForMonth lists userID's obligations due in the month, earliest first.
func (s *LedgerService) ObligationsForMonth(ctx context.Context, userID string, year, month int) ([]core.ScheduledObligation, error) {
	if err := (core.MonthKey{Year: year, Month: month}).Validate(); err != nil {
		return nil, err
	}
	obs, err := s.store.ListObligations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return ObligationsInMonth(obs, userID, year, month), nil
}

// DueSoon lists userID's unpaid obligations due between today and
// today+horizonDays inclusive.
func (s *LedgerService) DueSoon(ctx context.Context, userID string, horizonDays int) ([]core.ScheduledObligation, error) {
	obs, err := s.store.ListObligations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return DueSoon(obs, userID, s.Today(), horizonDays), nil
}

// DueSoonForAll scans the obligations of every user at once, grouped by
// user in order of first appearance.
func (s *LedgerService) DueSoonForAll(ctx context.Context, horizonDays int) ([]core.ScheduledObligation, error) {
	obs, err := s.store.ListObligations(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}

	today := s.Today()
	seen := make(map[string]bool)
	var out []core.ScheduledObligation
	for _, o := range obs {
		if seen[o.UserID] {
			continue
		}
		seen[o.UserID] = true
		out = append(out, DueSoon(obs, o.UserID, today, horizonDays)...)
	}
	return out, nil
}

// Aggregates

// MonthOverview returns the totals for one user and month, from the cache
// when possible.
func (s *LedgerService) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	if err := (core.MonthKey{Year: year, Month: month}).Validate(); err != nil {
		return core.MonthOverview{}, err
	}
	var gen uint64
	if s.summaries != nil {
		if o, ok := s.summaries.Get(userID, year, month); ok {
			return o, nil
		}
		gen = s.summaries.Generation(userID)
	}

	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.VisibleCategories(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, err
	}

	o := BuildMonthOverview(txns, cats, userID, year, month)
	if s.summaries != nil {
		s.summaries.SetIfCurrent(userID, gen, o)
	}
	return o, nil
}

// YearOverview returns the twelve month overviews of a year, computed
// concurrently.
func (s *LedgerService) YearOverview(ctx context.Context, userID string, year int) ([]core.MonthOverview, error) {
	if year < 1 {
		return nil, core.ErrInvalidYear
	}

	out := make([]core.MonthOverview, 12)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range out {
		g.Go(func() error {
			o, err := s.MonthOverview(ctx, userID, year, i+1)
			if err != nil {
				return fmt.Errorf("month %d: %w", i+1, err)
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("year overview: %w", err)
	}
	return out, nil
}

// SavingsProgress measures the month's savings against goal.
func (s *LedgerService) SavingsProgress(ctx context.Context, userID string, year, month int, goal core.Money) (core.SavingsProgress, error) {
	o, err := s.MonthOverview(ctx, userID, year, month)
	if err != nil {
		return core.SavingsProgress{}, err
	}
	return SavingsProgress(o.Savings, goal), nil
}
