package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/polite-scraper/internal/results"
)

const defaultCapacity = 500

// ResultStore keeps the most recent scrape results in a bounded slice.
type ResultStore struct {
	mu       sync.RWMutex
	records  []results.Record
	capacity int
}

// NewResultStore creates a store holding at most capacity records.
func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ResultStore{capacity: capacity}
}

// Save appends a record, evicting the oldest once full.
func (s *ResultStore) Save(_ context.Context, record results.Record) error {
	if record.ID == "" {
		return errors.New("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append([]results.Record(nil), s.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *ResultStore) Recent(_ context.Context, limit int) ([]results.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]results.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *ResultStore) Close() {}
