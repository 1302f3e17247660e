// Package progress persists drill state between runs: the imported deck,
// per-item schedules, the batch cursor, settings and review counters.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid progress key")

// Store is a durable key/value store. Values are opaque bytes.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the underlying resources.
	Close() error
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// MemoryStore keeps values in memory. It is used in tests and when no
// durable location is available.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
