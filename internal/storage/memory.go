package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ledger/internal/core"
)

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// memState holds entities in creation order. It implements Tx without any
// locking; MemoryStore guards it.
type memState struct {
	users        []core.User
	categories   []core.Category
	transactions []core.Transaction
	obligations  []core.ScheduledObligation
}

// NewMemoryStore creates a store seeded with the default shared categories.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{categories: slices.Clone(core.DefaultCategories)}}
}

// NewEmptyMemoryStore creates a store with no categories at all.
func NewEmptyMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{}}
}

func (m *MemoryStore) Close() error { return nil }

// Atomic runs fn against a copy of the current state and publishes the copy
// only when fn succeeds.
func (m *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(ctx, draft); err != nil {
		return err
	}
	m.state = draft
	return nil
}

func (s *memState) clone() *memState {
	return &memState{
		users:        slices.Clone(s.users),
		categories:   slices.Clone(s.categories),
		transactions: slices.Clone(s.transactions),
		obligations:  slices.Clone(s.obligations),
	}
}

// Locked wrappers

func (m *MemoryStore) GetUser(ctx context.Context, id string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetUser(ctx, id)
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetUserByEmail(ctx, email)
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListUsers(ctx)
}

func (m *MemoryStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetCategory(ctx, id)
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListCategories(ctx)
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListTransactions(ctx, userID)
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetTransaction(ctx, id)
}

func (m *MemoryStore) ListObligations(ctx context.Context, userID string) ([]core.ScheduledObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListObligations(ctx, userID)
}

func (m *MemoryStore) GetObligation(ctx context.Context, id string) (core.ScheduledObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetObligation(ctx, id)
}

func (m *MemoryStore) CountCategoryReferences(ctx context.Context, categoryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CountCategoryReferences(ctx, categoryID)
}

func (m *MemoryStore) CreateUser(ctx context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateUser(ctx, u)
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateUser(ctx, u)
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateCategory(ctx, c)
}

func (m *MemoryStore) UpdateCategory(ctx context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateCategory(ctx, c)
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteCategory(ctx, id)
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateTransaction(ctx, t)
}

func (m *MemoryStore) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateTransaction(ctx, t)
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteTransaction(ctx, id)
}

func (m *MemoryStore) CreateObligation(ctx context.Context, o core.ScheduledObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateObligation(ctx, o)
}

func (m *MemoryStore) UpdateObligation(ctx context.Context, o core.ScheduledObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateObligation(ctx, o)
}

func (m *MemoryStore) DeleteObligation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteObligation(ctx, id)
}

func (m *MemoryStore) ReplaceUserTransactions(ctx context.Context, userID string, txns []core.Transaction) error {
	return m.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceUserTransactions(ctx, userID, txns)
	})
}

func (m *MemoryStore) ReplaceUserObligations(ctx context.Context, userID string, obs []core.ScheduledObligation) error {
	return m.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceUserObligations(ctx, userID, obs)
	})
}

// State operations

func userIndex(s *memState, id string) int {
	return slices.IndexFunc(s.users, func(u core.User) bool { return u.ID == id })
}

func categoryIndex(s *memState, id string) int {
	return slices.IndexFunc(s.categories, func(c core.Category) bool { return c.ID == id })
}

func transactionIndex(s *memState, id string) int {
	return slices.IndexFunc(s.transactions, func(t core.Transaction) bool { return t.ID == id })
}

func obligationIndex(s *memState, id string) int {
	return slices.IndexFunc(s.obligations, func(o core.ScheduledObligation) bool { return o.ID == id })
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func duplicate(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrDuplicateID)
}

func (s *memState) GetUser(_ context.Context, id string) (core.User, error) {
	if i := userIndex(s, id); i >= 0 {
		return s.users[i], nil
	}
	return core.User{}, notFound("user", id)
}

func (s *memState) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, notFound("user", email)
}

func (s *memState) ListUsers(context.Context) ([]core.User, error) {
	return slices.Clone(s.users), nil
}

func (s *memState) GetCategory(_ context.Context, id string) (core.Category, error) {
	if i := categoryIndex(s, id); i >= 0 {
		return s.categories[i], nil
	}
	return core.Category{}, notFound("category", id)
}

func (s *memState) ListCategories(context.Context) ([]core.Category, error) {
	return slices.Clone(s.categories), nil
}

func (s *memState) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if userID == "" || t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memState) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	if i := transactionIndex(s, id); i >= 0 {
		return s.transactions[i], nil
	}
	return core.Transaction{}, notFound("transaction", id)
}

func (s *memState) ListObligations(_ context.Context, userID string) ([]core.ScheduledObligation, error) {
	out := make([]core.ScheduledObligation, 0, len(s.obligations))
	for _, o := range s.obligations {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memState) GetObligation(_ context.Context, id string) (core.ScheduledObligation, error) {
	if i := obligationIndex(s, id); i >= 0 {
		return s.obligations[i], nil
	}
	return core.ScheduledObligation{}, notFound("obligation", id)
}

func (s *memState) CountCategoryReferences(_ context.Context, categoryID string) (int, error) {
	n := 0
	for _, t := range s.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	for _, o := range s.obligations {
		if o.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s *memState) CreateUser(_ context.Context, u core.User) error {
	if userIndex(s, u.ID) >= 0 {
		return duplicate("user", u.ID)
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, core.ErrDuplicateEmail)
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *memState) UpdateUser(_ context.Context, u core.User) error {
	i := userIndex(s, u.ID)
	if i < 0 {
		return notFound("user", u.ID)
	}
	for _, existing := range s.users {
		if existing.ID != u.ID && existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, core.ErrDuplicateEmail)
		}
	}
	s.users[i] = u
	return nil
}

func (s *memState) CreateCategory(_ context.Context, c core.Category) error {
	if categoryIndex(s, c.ID) >= 0 {
		return duplicate("category", c.ID)
	}
	s.categories = append(s.categories, c)
	return nil
}

func (s *memState) UpdateCategory(_ context.Context, c core.Category) error {
	i := categoryIndex(s, c.ID)
	if i < 0 {
		return notFound("category", c.ID)
	}
	s.categories[i] = c
	return nil
}

func (s *memState) DeleteCategory(_ context.Context, id string) error {
	i := categoryIndex(s, id)
	if i < 0 {
		return notFound("category", id)
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	return nil
}

func (s *memState) CreateTransaction(_ context.Context, t core.Transaction) error {
	if transactionIndex(s, t.ID) >= 0 {
		return duplicate("transaction", t.ID)
	}
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *memState) UpdateTransaction(_ context.Context, t core.Transaction) error {
	i := transactionIndex(s, t.ID)
	if i < 0 {
		return notFound("transaction", t.ID)
	}
	s.transactions[i] = t
	return nil
}

func (s *memState) DeleteTransaction(_ context.Context, id string) error {
	i := transactionIndex(s, id)
	if i < 0 {
		return notFound("transaction", id)
	}
	s.transactions = slices.Delete(s.transactions, i, i+1)
	return nil
}

func (s *memState) CreateObligation(_ context.Context, o core.ScheduledObligation) error {
	if obligationIndex(s, o.ID) >= 0 {
		return duplicate("obligation", o.ID)
	}
	s.obligations = append(s.obligations, o)
	return nil
}

func (s *memState) UpdateObligation(_ context.Context, o core.ScheduledObligation) error {
	i := obligationIndex(s, o.ID)
	if i < 0 {
		return notFound("obligation", o.ID)
	}
	s.obligations[i] = o
	return nil
}

func (s *memState) DeleteObligation(_ context.Context, id string) error {
	i := obligationIndex(s, id)
	if i < 0 {
		return notFound("obligation", id)
	}
	s.obligations = slices.Delete(s.obligations, i, i+1)
	return nil
}

func (s *memState) ReplaceUserTransactions(ctx context.Context, userID string, txns []core.Transaction) error {
	s.transactions = slices.DeleteFunc(s.transactions, func(t core.Transaction) bool { return t.UserID == userID })
	for _, t := range txns {
		if err := s.CreateTransaction(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *memState) ReplaceUserObligations(ctx context.Context, userID string, obs []core.ScheduledObligation) error {
	s.obligations = slices.DeleteFunc(s.obligations, func(o core.ScheduledObligation) bool { return o.UserID == userID })
	for _, o := range obs {
		if err := s.CreateObligation(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
