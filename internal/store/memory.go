package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/elonfeng/scorecard/pkg/enrich"
)

// MemoryStore is a process-local cache, used when nothing should persist.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Entry)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(_ context.Context, key string) (enrich.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return e.Record, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, rec enrich.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = Entry{Key: key, Record: rec, FetchedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
