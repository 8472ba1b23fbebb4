package pantry

import (
	"slices"
	"sync"

	"baby-meal-planner/internal/storage"
)

// StorageKey is the persisted record holding the pantry as a list of ingredient ids.
const StorageKey = "babymeal-passport-pantry"

// Store is the set of ingredient ids currently on hand.
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	items   map[string]struct{}
	version uint64
}

// NewStore loads the pantry from kv. A missing or corrupt record yields an empty pantry.
func NewStore(kv storage.KV) *Store {
	s := &Store{kv: kv, items: make(map[string]struct{})}
	var ids []string
	if storage.LoadJSON(kv, StorageKey, &ids) {
		for _, id := range ids {
			s.items[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is in stock.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Count returns the number of ingredients in stock.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IDs returns the stocked ingredient ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Version increases on every change and keys memoized derivations.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Add puts ids in stock. Ids already present are ignored.
func (s *Store) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			s.items[id] = struct{}{}
			changed = true
		}
	}
	if changed {
		s.commitLocked()
	}
}

// Remove takes ids out of stock.
func (s *Store) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			delete(s.items, id)
			changed = true
		}
	}
	if changed {
		s.commitLocked()
	}
}

// Toggle flips id in or out of stock and returns whether it is now stocked.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, had := s.items[id]
	if had {
		delete(s.items, id)
	} else {
		s.items[id] = struct{}{}
	}
	s.commitLocked()
	return !had
}

// Clear empties the pantry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return
	}
	s.items = make(map[string]struct{})
	s.commitLocked()
}

func (s *Store) sortedLocked() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) commitLocked() {
	s.version++
	storage.SaveJSON(s.kv, StorageKey, s.sortedLocked())
}
