package storage

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
)

// ErrNotFound is returned by KV.Get when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// KV is the key-value persistence capability used by the stores.
// Each record is a full JSON snapshot rewritten on every change.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// LoadJSON decodes the record at key into v. It returns false when the record
// is missing or unreadable, in which case v should be treated as the default.
// Read and decode failures are logged, never returned.
func LoadJSON(kv KV, key string, v any) bool {
	data, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("Warning: failed to read %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Warning: discarding corrupt %s: %v", key, err)
		return false
	}
	return true
}

// SaveJSON writes v as the full record for key. Failures are logged and
// swallowed; the caller's in-memory state stays authoritative.
func SaveJSON(kv KV, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Warning: failed to marshal %s: %v", key, err)
		return
	}
	if err := kv.Put(key, data); err != nil {
		log.Printf("Warning: failed to persist %s: %v", key, err)
	}
}

// MemoryStore is an in-process KV, used for tests and the "memory" backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
