// Package storage persists ledger entities. It offers an in-memory backend
// and a SQLite backend behind the same Store port; both run multi-row writes
// through Atomic so a failed step leaves nothing visible.
package storage

import (
	"context"

	"ledger/internal/core"
)

// Reader is the query half of the store. List methods return entities in
// creation order.
type Reader interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)

	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)

	// ListTransactions returns the transactions of userID, or of every user
	// when userID is empty.
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)

	ListObligations(ctx context.Context, userID string) ([]core.ScheduledObligation, error)
	GetObligation(ctx context.Context, id string) (core.ScheduledObligation, error)

	// CountCategoryReferences counts transactions and obligations of any
	// user that point at categoryID.
	CountCategoryReferences(ctx context.Context, categoryID string) (int, error)
}

// Writer mutates entities. Creating an entity whose id already exists fails
// with core.ErrDuplicateID; touching a missing one fails with core.ErrNotFound.
type Writer interface {
	CreateUser(ctx context.Context, u core.User) error
	UpdateUser(ctx context.Context, u core.User) error

	CreateCategory(ctx context.Context, c core.Category) error
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	CreateObligation(ctx context.Context, o core.ScheduledObligation) error
	UpdateObligation(ctx context.Context, o core.ScheduledObligation) error
	DeleteObligation(ctx context.Context, id string) error

	// ReplaceUserTransactions drops every transaction of userID and inserts
	// txns in their place. Other users' rows are untouched.
	ReplaceUserTransactions(ctx context.Context, userID string, txns []core.Transaction) error
	ReplaceUserObligations(ctx context.Context, userID string, obs []core.ScheduledObligation) error
}

// Tx is the handle passed to Atomic callbacks.
type Tx interface {
	Reader
	Writer
}

// Store is a complete backend.
type Store interface {
	Tx
	// Atomic runs fn against a transactional view. Writes made through tx
	// become visible only if fn returns nil. fn must not call back into the
	// Store itself.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
