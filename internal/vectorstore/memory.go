package vectorstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process store for tests and one-shot runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns a copy of the record stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, false, nil
	}
	rec.Vector = cloneVector(rec.Vector)
	return rec, true, nil
}

// Put stores a copy of rec.
func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Vector = cloneVector(rec.Vector)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}

// Count returns the number of records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
