// Package cache memoises month overviews per (user, year, month).
package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/core"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

// SummaryCache stores month overviews. Keys are "<user>|<yyyy-mm>".
//
// Every invalidation bumps a generation counter. A caller reads the
// generation before loading data and stores its result with SetIfCurrent,
// so an overview built from data that was invalidated meanwhile is dropped.
type SummaryCache struct {
	lru *LRUCache[core.MonthOverview]

	mu    sync.Mutex
	gens  map[string]uint64
	epoch uint64
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		lru:  NewLRUCache[core.MonthOverview](maxSize, ttl),
		gens: make(map[string]uint64),
	}
}

func summaryKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, month)
}

func (s *SummaryCache) Get(userID string, year, month int) (core.MonthOverview, bool) {
	return s.lru.Get(summaryKey(userID, year, month))
}

func (s *SummaryCache) Set(userID string, o core.MonthOverview) {
	s.lru.Set(summaryKey(userID, o.Year, o.Month), o)
}

// Generation returns userID's current generation. Both counters only grow,
// so their sum changes whenever either one does.
func (s *SummaryCache) Generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch + s.gens[userID]
}

// SetIfCurrent stores o only if userID was not invalidated since gen was read.
func (s *SummaryCache) SetIfCurrent(userID string, gen uint64, o core.MonthOverview) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch+s.gens[userID] != gen {
		return false
	}
	s.lru.Set(summaryKey(userID, o.Year, o.Month), o)
	return true
}

// InvalidateUser drops every cached month of userID.
func (s *SummaryCache) InvalidateUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[userID]++
	return s.lru.DeletePrefix(userID + "|")
}

// InvalidateAll drops every entry. Category edits touch shared data, so they
// cannot be scoped to one user.
func (s *SummaryCache) InvalidateAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.lru.DeletePrefix("")
}

func (s *SummaryCache) CleanExpired() int { return s.lru.CleanExpired() }
func (s *SummaryCache) Size() int         { return s.lru.Size() }

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if totalCleaned > 0 {
				slog.Debug("Cleaned expired cache entries", "count", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
}
