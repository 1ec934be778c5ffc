package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	sheetsmem "ledger/internal/sheets/memory"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...Option) (*LedgerService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs("id")),
	}, opts...)
	return NewLedgerService(store, opts...), store
}

func groceries() core.Transaction {
	return core.Transaction{
		UserID:      "u1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 4550},
		Description: "Groceries",
		CategoryID:  "cat-1",
		Date:        core.NewDate(2024, 3, 2),
	}
}

func TestLedger_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	got, err := svc.CreateTransaction(ctx, groceries(), 12)
	require.NoError(t, err)
	require.Len(t, got, 1, "non-recurring entries ignore the month count")
	assert.Zero(t, got[0].RecurringMonths)

	stored, err := store.GetTransaction(ctx, got[0].ID)
	require.NoError(t, err)
	assert.Equal(t, got[0], stored)
}

func TestLedger_CreateRecurringTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	tmpl := groceries()
	tmpl.IsRecurring = true
	got, err := svc.CreateTransaction(ctx, tmpl, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	all, err := store.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, txn := range all {
		assert.True(t, txn.IsRecurring)
		assert.Equal(t, 3, txn.RecurringMonths)
		assert.Equal(t, 3+i, txn.Date.Month())
		if i > 0 {
			assert.Equal(t, all[0].ID, txn.ParentID)
		}
	}
}

func TestLedger_CreateTransaction_UnknownCategory(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	tmpl := groceries()
	tmpl.IsRecurring = true
	tmpl.CategoryID = "missing"
	_, err := svc.CreateTransaction(ctx, tmpl, 4)
	require.ErrorIs(t, err, core.ErrUnknownCategory)

	all, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLedger_CreateTransaction_OtherUsersCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	private, err := svc.CreateCategory(ctx, core.Category{Name: "Pets", Color: "#000", Type: core.Expense, OwnerID: "u2"})
	require.NoError(t, err)

	tmpl := groceries()
	tmpl.CategoryID = private.ID
	_, err = svc.CreateTransaction(ctx, tmpl, 1)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestLedger_UpdateTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	tmpl := groceries()
	tmpl.IsRecurring = true
	created, err := svc.CreateTransaction(ctx, tmpl, 2)
	require.NoError(t, err)

	edit := created[1]
	edit.UserID = "someone-else"
	edit.ParentID = ""
	edit.Amount = core.Money{Cents: 9900}
	edit.Description = "Big groceries"
	updated, err := svc.UpdateTransaction(ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, "u1", updated.UserID, "owner is immutable")
	assert.Equal(t, created[0].ID, updated.ParentID, "lineage is immutable")

	first, err := store.GetTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], first, "siblings are untouched")

	_, err = svc.UpdateTransaction(ctx, core.Transaction{ID: "nope"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedger_DeleteTransactionDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	tmpl := groceries()
	tmpl.IsRecurring = true
	created, err := svc.CreateTransaction(ctx, tmpl, 3)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, created[0].ID))

	all, err := store.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, created[0].ID, all[0].ParentID)

	assert.ErrorIs(t, svc.DeleteTransaction(ctx, created[0].ID), core.ErrNotFound)
}

func TestLedger_DeleteCategoryInUse(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	_, err := svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, "cat-1")
	require.ErrorIs(t, err, core.ErrCategoryInUse)
	_, err = store.GetCategory(ctx, "cat-1")
	require.NoError(t, err, "blocked delete must keep the category")

	require.NoError(t, svc.DeleteCategory(ctx, "cat-2"))
	_, err = store.GetCategory(ctx, "cat-2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedger_DeleteCategoryReferencedByObligation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	_, err := svc.ScheduleObligation(ctx, core.ScheduledObligation{
		UserID: "u1", Amount: core.Money{Cents: 100}, Description: "Tax", CategoryID: "cat-4",
		DueDate: core.NewDate(2024, 4, 1),
	}, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, "cat-4"), core.ErrCategoryInUse)
}

func TestLedger_UpdateCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	c, err := svc.CreateCategory(ctx, core.Category{Name: "Pets", Color: "#000", Type: core.Expense, OwnerID: "u1"})
	require.NoError(t, err)

	c.Name = "Animals"
	c.OwnerID = ""
	updated, err := svc.UpdateCategory(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)
	assert.Equal(t, "u1", updated.OwnerID)

	_, err = svc.UpdateCategory(ctx, core.Category{ID: c.ID, Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestLedger_ScheduleObligation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	tmpl := core.ScheduledObligation{
		UserID:      "u1",
		Amount:      core.Money{Cents: 15000},
		Description: "Insurance",
		CategoryID:  "cat-5",
		DueDate:     core.NewDate(2024, 1, 31),
	}
	got, err := svc.ScheduleObligation(ctx, tmpl, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-02-29", got[1].DueDate.String())

	obs, err := store.ListObligations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, obs, 3)

	tmpl.CategoryID = "cat-7"
	_, err = svc.ScheduleObligation(ctx, tmpl, 1)
	assert.ErrorIs(t, err, core.ErrCategoryType)
}

func TestLedger_PayObligation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	obs, err := svc.ScheduleObligation(ctx, core.ScheduledObligation{
		UserID:      "u1",
		Amount:      core.Money{Cents: 15000},
		Description: "Insurance",
		CategoryID:  "cat-5",
		DueDate:     core.NewDate(2024, 3, 15),
	}, 2)
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	before, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)

	paid, err := svc.PayObligation(ctx, obs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, core.Expense, paid.Type)
	assert.Equal(t, "150.00", paid.Amount.String())
	assert.Equal(t, "cat-5", paid.CategoryID)
	assert.Equal(t, "Insurance", paid.Description)
	assert.Equal(t, "2024-03-10", paid.Date.String())

	after, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, before, after[:len(before)])

	first, err := store.GetObligation(ctx, obs[0].ID)
	require.NoError(t, err)
	assert.True(t, first.IsPaid)
	second, err := store.GetObligation(ctx, obs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, obs[1], second)

	_, err = svc.PayObligation(ctx, obs[0].ID)
	require.ErrorIs(t, err, core.ErrAlreadyPaid)
	again, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, again, len(after))
}

// failOnCreateTx rejects transaction inserts to exercise rollback.
type failOnCreateTx struct {
	storage.Tx
}

func (failOnCreateTx) CreateTransaction(context.Context, core.Transaction) error {
	return errors.New("disk full")
}

type failingStore struct {
	*storage.MemoryStore
	wrap func(storage.Tx) storage.Tx
}

func (f failingStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return f.MemoryStore.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, f.wrap(tx))
	})
}

func TestLedger_UpdateObligationKeepsPaidFlag(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	obs, err := svc.ScheduleObligation(ctx, core.ScheduledObligation{
		UserID:      "u1",
		Amount:      core.Money{Cents: 15000},
		Description: "Rent",
		CategoryID:  "cat-3",
		DueDate:     core.NewDate(2024, 3, 15),
	}, 1)
	require.NoError(t, err)

	edit := obs[0]
	edit.Description = "Rent March"
	edit.IsPaid = true
	updated, err := svc.UpdateObligation(ctx, edit)
	require.NoError(t, err)
	assert.False(t, updated.IsPaid)
	assert.Equal(t, "Rent March", updated.Description)

	stored, err := store.GetObligation(ctx, obs[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
	txns, err := store.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txns)

	paid, err := svc.PayObligation(ctx, obs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent March", paid.Description)

	edit.IsPaid = false
	_, err = svc.UpdateObligation(ctx, edit)
	require.NoError(t, err)
	stored, err = store.GetObligation(ctx, obs[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid, "an update cannot un-pay an obligation")

	_, err = svc.PayObligation(ctx, obs[0].ID)
	require.ErrorIs(t, err, core.ErrAlreadyPaid)
	txns, err = store.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestLedger_PayObligationIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	store := failingStore{MemoryStore: mem, wrap: func(tx storage.Tx) storage.Tx { return failOnCreateTx{tx} }}
	svc := NewLedgerService(store, WithClock(func() time.Time { return fixedNow }))

	ob := core.ScheduledObligation{
		ID: "ob-1", UserID: "u1", Amount: core.Money{Cents: 15000},
		Description: "Insurance", CategoryID: "cat-5", DueDate: core.NewDate(2024, 3, 15),
	}
	require.NoError(t, mem.CreateObligation(ctx, ob))

	_, err := svc.PayObligation(ctx, "ob-1")
	require.Error(t, err)

	got, err := mem.GetObligation(ctx, "ob-1")
	require.NoError(t, err)
	assert.False(t, got.IsPaid, "failed payment must not flip the flag")
}

func TestLedger_ObligationQueries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	for _, due := range []string{"2024-03-28", "2024-03-12", "2024-03-16", "2024-04-02"} {
		_, err := svc.ScheduleObligation(ctx, core.ScheduledObligation{
			UserID: "u1", Amount: core.Money{Cents: 100}, Description: "bill " + due,
			CategoryID: "cat-3", DueDate: core.MustParseDate(due),
		}, 1)
		require.NoError(t, err)
	}

	month, err := svc.ObligationsForMonth(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	require.Len(t, month, 3)
	assert.Equal(t, "2024-03-12", month[0].DueDate.String())
	assert.Equal(t, "2024-03-28", month[2].DueDate.String())

	_, err = svc.ObligationsForMonth(ctx, "u1", 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	soon, err := svc.DueSoon(ctx, "u1", DefaultHorizonDays)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, "2024-03-12", soon[0].DueDate.String())
}

func TestLedger_MonthOverviewCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	summaries := cache.NewSummaryCache(16, time.Hour)
	svc, _ := newTestLedger(t, WithSummaryCache(summaries))

	_, err := svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	o, err := svc.MonthOverview(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4550), o.Expenses.Cents)
	assert.Equal(t, 1, summaries.Size())

	_, err = svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)
	assert.Zero(t, summaries.Size(), "write must drop the user's summaries")

	o, err = svc.MonthOverview(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9100), o.Expenses.Cents)

	_, err = svc.MonthOverview(ctx, "u1", 2024, 0)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

// writeDuringList runs onList once, right after the transactions were read.
type writeDuringList struct {
	*storage.MemoryStore
	onList func()
}

func (w *writeDuringList) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	txns, err := w.MemoryStore.ListTransactions(ctx, userID)
	if f := w.onList; f != nil {
		w.onList = nil
		f()
	}
	return txns, err
}

func TestLedger_MonthOverviewSkipsCachingStaleResult(t *testing.T) {
	ctx := context.Background()
	summaries := cache.NewSummaryCache(16, time.Hour)
	store := &writeDuringList{MemoryStore: storage.NewMemoryStore()}
	svc := NewLedgerService(store,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs("id")),
		WithSummaryCache(summaries),
	)

	_, err := svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	store.onList = func() {
		_, err := svc.CreateTransaction(ctx, groceries(), 1)
		require.NoError(t, err)
	}
	o, err := svc.MonthOverview(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4550), o.Expenses.Cents)
	assert.Zero(t, summaries.Size(), "an overview read before a write must not be cached")

	o, err = svc.MonthOverview(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9100), o.Expenses.Cents)
	assert.Equal(t, 1, summaries.Size())
}

func TestLedger_YearOverview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, WithSummaryCache(cache.NewSummaryCache(64, time.Hour)))

	salary := core.Transaction{
		UserID: "u1", Type: core.Income, Amount: core.Money{Cents: 500000},
		Description: "Salary", CategoryID: "cat-7", Date: core.NewDate(2024, 1, 5),
		IsRecurring: true,
	}
	_, err := svc.CreateTransaction(ctx, salary, 6)
	require.NoError(t, err)

	year, err := svc.YearOverview(ctx, "u1", 2024)
	require.NoError(t, err)
	require.Len(t, year, 12)
	for i, o := range year {
		assert.Equal(t, i+1, o.Month)
		want := int64(0)
		if i < 6 {
			want = 500000
		}
		assert.Equal(t, want, o.Income.Cents, "month %d", i+1)
	}

	_, err = svc.YearOverview(ctx, "u1", 0)
	assert.ErrorIs(t, err, core.ErrInvalidYear)
}

func TestLedger_SavingsProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	savings, err := svc.CreateCategory(ctx, core.Category{Name: "Poupança", Color: "#0f0", Type: core.Expense, OwnerID: "u1"})
	require.NoError(t, err)

	deposit := groceries()
	deposit.Type = core.Income
	deposit.CategoryID = savings.ID
	deposit.Amount = core.Money{Cents: 80000}
	_, err = svc.CreateTransaction(ctx, deposit, 1)
	require.NoError(t, err)

	p, err := svc.SavingsProgress(ctx, "u1", 2024, 3, core.Money{Cents: 100000})
	require.NoError(t, err)
	assert.Equal(t, core.SavingsClose, p.Level)
	assert.Equal(t, int64(20000), p.Remaining.Cents)
}

func TestLedger_ListTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	for _, d := range []string{"Rent", "groceries", "Cinema"} {
		tmpl := groceries()
		tmpl.Description = d
		_, err := svc.CreateTransaction(ctx, tmpl, 1)
		require.NoError(t, err)
	}

	got, err := svc.ListTransactions(ctx, "u1", TransactionFilter{Sort: SortDescriptionAsc})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Cinema", got[0].Description)
	assert.Equal(t, "Rent", got[2].Description)
}

func TestLedger_Export(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLedger(t)

	require.NoError(t, store.CreateUser(ctx, core.User{ID: "u1", Name: "Ana", Email: "ana@example.com", AuthSecret: "hash"}))
	_, err := svc.CreateCategory(ctx, core.Category{Name: "Mine", Color: "#111", Type: core.Expense, OwnerID: "u1"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, core.Category{Name: "Theirs", Color: "#222", Type: core.Expense, OwnerID: "u2"})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	doc, err := svc.Export(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", doc.User.Email)
	assert.Len(t, doc.Categories, len(core.DefaultCategories)+1)
	assert.Len(t, doc.Transactions, 1)
	assert.NotNil(t, doc.Scheduled)
	assert.Equal(t, fixedNow, doc.ExportDate)

	_, err = svc.Export(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedger_PushMonthOverview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)
	sink := sheetsmem.New()

	_, err := svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)

	ref, err := svc.PushMonthOverview(ctx, sink, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	got, err := sink.ReadMonthOverview(ctx, "u1", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4550), got.Expenses.Cents)

	_, err = svc.PushMonthOverview(ctx, sink, "u1", 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	assert.Equal(t, 1, sink.Writes())
}

func TestLedger_GettersHideOtherUsersEntities(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t)

	txns, err := svc.CreateTransaction(ctx, groceries(), 1)
	require.NoError(t, err)
	obs, err := svc.ScheduleObligation(ctx, core.ScheduledObligation{
		UserID:      "u1",
		Amount:      core.Money{Cents: 9000},
		Description: "Rent",
		CategoryID:  "cat-3",
		DueDate:     core.NewDate(2024, 3, 15),
	}, 1)
	require.NoError(t, err)

	gotTxn, err := svc.GetTransaction(ctx, "u1", txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[0], gotTxn)

	gotOb, err := svc.GetObligation(ctx, "u1", obs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, obs[0], gotOb)

	_, err = svc.GetTransaction(ctx, "u2", txns[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.GetObligation(ctx, "u2", obs[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.GetTransaction(ctx, "u1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.GetObligation(ctx, "u1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
