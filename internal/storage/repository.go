package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	*queries
	db *sql.DB
}

// queries implements Tx over either the database or an open transaction.
type queries struct {
	db DBTX
}

type scanner interface {
	Scan(dest ...any) error
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLite away from SQLITE_BUSY inside transactions.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "SQLite store ready", "path", dbPath, "schema_version", version)

	return &SQLiteStore{queries: &queries{db: db}, db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Atomic runs fn inside one database transaction.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &queries{db: tx})
	})
}

// ReplaceUserTransactions runs as its own transaction when called outside Atomic.
func (s *SQLiteStore) ReplaceUserTransactions(ctx context.Context, userID string, txns []core.Transaction) error {
	return s.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceUserTransactions(ctx, userID, txns)
	})
}

func (s *SQLiteStore) ReplaceUserObligations(ctx context.Context, userID string, obs []core.ScheduledObligation) error {
	return s.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceUserObligations(ctx, userID, obs)
	})
}

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(kind, id string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE") {
		if strings.Contains(se.Error(), "users.email") {
			return fmt.Errorf("%s %s: %w", kind, id, core.ErrDuplicateEmail)
		}
		return duplicate(kind, id)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMonths(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

// Users

const userColumns = "id, name, email, auth_secret"

func scanUser(row scanner) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AuthSecret)
	return u, err
}

func (q *queries) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, notFound("user", id)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, notFound("user", email)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (q *queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]core.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, auth_secret) VALUES (?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.AuthSecret)
	if err != nil {
		return mapWriteError("user", u.ID, err)
	}
	return nil
}

func (q *queries) UpdateUser(ctx context.Context, u core.User) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, auth_secret = ? WHERE id = ?",
		u.Name, u.Email, u.AuthSecret, u.ID)
	if err != nil {
		return mapWriteError("user", u.ID, err)
	}
	return expectOne(res, "user", u.ID)
}

// Categories

const categoryColumns = "id, name, color, type, owner_id"

func scanCategory(row scanner) (core.Category, error) {
	var (
		c     core.Category
		owner sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Type, &owner); err != nil {
		return core.Category{}, err
	}
	c.OwnerID = owner.String
	return c, nil
}

func (q *queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, notFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO categories (id, name, color, type, owner_id) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Color, string(c.Type), nullString(c.OwnerID))
	if err != nil {
		return mapWriteError("category", c.ID, err)
	}
	return nil
}

func (q *queries) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, color = ?, type = ?, owner_id = ? WHERE id = ?",
		c.Name, c.Color, string(c.Type), nullString(c.OwnerID), c.ID)
	if err != nil {
		return mapWriteError("category", c.ID, err)
	}
	return expectOne(res, "category", c.ID)
}

func (q *queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return expectOne(res, "category", id)
}

func (q *queries) CountCategoryReferences(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
		     + (SELECT COUNT(*) FROM scheduled_obligations WHERE category_id = ?)`,
		categoryID, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category references: %w", err)
	}
	return n, nil
}

// Transactions

const transactionColumns = "id, user_id, type, amount_cents, description, category_id, date, is_recurring, recurring_months, parent_id"

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		date   string
		months sql.NullInt64
		parent sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount.Cents, &t.Description,
		&t.CategoryID, &date, &t.IsRecurring, &months, &parent)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.RecurringMonths = int(months.Int64)
	t.ParentID = parent.String
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	rows, err := q.db.QueryContext(ctx, query+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, notFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (q *queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.UserID, string(t.Type), t.Amount.Cents, t.Description, t.CategoryID,
		t.Date.String(), t.IsRecurring, nullMonths(t.RecurringMonths), nullString(t.ParentID))
	if err != nil {
		return mapWriteError("transaction", t.ID, err)
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE transactions
		SET user_id = ?, type = ?, amount_cents = ?, description = ?, category_id = ?,
		    date = ?, is_recurring = ?, recurring_months = ?, parent_id = ?
		WHERE id = ?`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Description, t.CategoryID,
		t.Date.String(), t.IsRecurring, nullMonths(t.RecurringMonths), nullString(t.ParentID), t.ID)
	if err != nil {
		return mapWriteError("transaction", t.ID, err)
	}
	return expectOne(res, "transaction", t.ID)
}

func (q *queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return expectOne(res, "transaction", id)
}

func (q *queries) ReplaceUserTransactions(ctx context.Context, userID string, txns []core.Transaction) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear transactions of %s: %w", userID, err)
	}
	for _, t := range txns {
		if err := q.CreateTransaction(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Scheduled obligations

const obligationColumns = "id, user_id, amount_cents, description, category_id, due_date, is_paid"

func scanObligation(row scanner) (core.ScheduledObligation, error) {
	var (
		o   core.ScheduledObligation
		due string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Amount.Cents, &o.Description, &o.CategoryID, &due, &o.IsPaid)
	if err != nil {
		return core.ScheduledObligation{}, err
	}
	if o.DueDate, err = core.ParseDate(due); err != nil {
		return core.ScheduledObligation{}, fmt.Errorf("obligation %s: %w", o.ID, err)
	}
	return o, nil
}

func (q *queries) ListObligations(ctx context.Context, userID string) ([]core.ScheduledObligation, error) {
	query := "SELECT " + obligationColumns + " FROM scheduled_obligations"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	rows, err := q.db.QueryContext(ctx, query+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	out := make([]core.ScheduledObligation, 0)
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *queries) GetObligation(ctx context.Context, id string) (core.ScheduledObligation, error) {
	o, err := scanObligation(q.db.QueryRowContext(ctx, "SELECT "+obligationColumns+" FROM scheduled_obligations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ScheduledObligation{}, notFound("obligation", id)
	}
	if err != nil {
		return core.ScheduledObligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return o, nil
}

func (q *queries) CreateObligation(ctx context.Context, o core.ScheduledObligation) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO scheduled_obligations ("+obligationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		o.ID, o.UserID, o.Amount.Cents, o.Description, o.CategoryID, o.DueDate.String(), o.IsPaid)
	if err != nil {
		return mapWriteError("obligation", o.ID, err)
	}
	return nil
}

func (q *queries) UpdateObligation(ctx context.Context, o core.ScheduledObligation) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scheduled_obligations
		SET user_id = ?, amount_cents = ?, description = ?, category_id = ?, due_date = ?, is_paid = ?
		WHERE id = ?`,
		o.UserID, o.Amount.Cents, o.Description, o.CategoryID, o.DueDate.String(), o.IsPaid, o.ID)
	if err != nil {
		return mapWriteError("obligation", o.ID, err)
	}
	return expectOne(res, "obligation", o.ID)
}

func (q *queries) DeleteObligation(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM scheduled_obligations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete obligation %s: %w", id, err)
	}
	return expectOne(res, "obligation", id)
}

func (q *queries) ReplaceUserObligations(ctx context.Context, userID string, obs []core.ScheduledObligation) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM scheduled_obligations WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear obligations of %s: %w", userID, err)
	}
	for _, o := range obs {
		if err := q.CreateObligation(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
