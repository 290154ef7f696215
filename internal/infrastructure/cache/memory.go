package cache

import (
	"context"
	"sync"
	"time"

	"github.com/productlens/backend/internal/domain"
)

// MemoryStore is a process-local SearchCache. Entries are kept in insertion
// order and never expire, matching the persisted stores.
type MemoryStore struct {
	entries []domain.SearchResultEntry
	mutex   sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory search cache
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Connect is a no-op; the store is always available
func (s *MemoryStore) Connect(ctx context.Context) error {
	return nil
}

// Lookup returns a copy of the newest entry matching query, or nil
func (s *MemoryStore) Lookup(ctx context.Context, query string) (*domain.SearchResultEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var best *domain.SearchResultEntry
	for i := range s.entries {
		e := &s.entries[i]
		if !domain.MatchesQuery(e.Query, query) {
			continue
		}
		if best == nil || !e.CreatedAt.Before(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}

	return &domain.SearchResultEntry{
		Query:     best.Query,
		Results:   domain.CloneProducts(best.Results),
		CreatedAt: best.CreatedAt,
	}, nil
}

// Replace drops entries with exactly this query and appends a new one.
// Both steps run under one lock, so in-process replaces never interleave.
func (s *MemoryStore) Replace(ctx context.Context, query string, results []domain.Product) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Query != query {
			kept = append(kept, e)
		}
	}
	s.entries = append(kept, domain.SearchResultEntry{
		Query:     query,
		Results:   domain.CloneProducts(results),
		CreatedAt: s.now(),
	})
	return nil
}

// Size returns the current number of entries (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// Clear removes all entries
func (s *MemoryStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = nil
}
