package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// Store records written overviews in memory. It stands in for the
// spreadsheet when no Google credentials are configured.
type Store struct {
	mu     sync.Mutex
	rows   int
	latest map[string]core.MonthOverview
}

var (
	_ ports.SummaryWriter = (*Store)(nil)
	_ ports.SummaryReader = (*Store)(nil)
)

func New() *Store {
	return &Store{latest: make(map[string]core.MonthOverview)}
}

func key(userID string, year, month int) string {
	return userID + "|" + core.MonthKey{Year: year, Month: month}.String()
}

// WriteMonthOverview stores the overview and returns a synthetic row reference.
func (s *Store) WriteMonthOverview(_ context.Context, userID string, o core.MonthOverview) (string, error) {
	if err := (core.MonthKey{Year: o.Year, Month: o.Month}).Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[key(userID, o.Year, o.Month)] = o
	s.rows++
	return fmt.Sprintf("mem:%d", s.rows), nil
}

func (s *Store) ReadMonthOverview(_ context.Context, userID string, year, month int) (core.MonthOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.latest[key(userID, year, month)]; ok {
		return o, nil
	}
	return core.MonthOverview{Year: year, Month: month, ByCategory: []core.CategoryAmount{}}, nil
}

// Writes reports how many overviews were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}
