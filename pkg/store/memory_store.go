package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests, examples and the
// process-wide standard defaults. Values are cloned on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Primitive
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Lister = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Primitive{}}
}

// NewMemoryStoreFrom seeds a memory store with a copy of records.
func NewMemoryStoreFrom(records map[string]Primitive) *MemoryStore {
	s := NewMemoryStore()
	for key, value := range records {
		if value == nil {
			continue
		}
		s.records[key] = Clone(value)
	}
	return s
}

func (s *MemoryStore) Get(key string) (Primitive, bool) {
	s.mu.RLock()
	value, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return Clone(value), true
}

// Set stores a copy of value. A nil value removes the key.
func (s *MemoryStore) Set(key string, value Primitive) {
	if value == nil {
		s.Remove(key)
		return
	}
	cloned := Clone(value)
	s.mu.Lock()
	s.records[key] = cloned
	s.mu.Unlock()
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}

func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of every record.
func (s *MemoryStore) Snapshot() map[string]Primitive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Primitive, len(s.records))
	for key, value := range s.records {
		out[key] = Clone(value)
	}
	return out
}

// Reset drops every record.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.records = map[string]Primitive{}
	s.mu.Unlock()
}
