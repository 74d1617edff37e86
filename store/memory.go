package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jacentio/schedule/record"
)

// Memory is an in-process record store.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]entry
	registry *record.Registry
	closed   bool
}

// NewMemory creates an empty Memory store using the default registry.
func NewMemory() *Memory {
	return NewMemoryWithRegistry(nil)
}

// NewMemoryWithRegistry creates an empty Memory store that rebuilds variants with registry.
func NewMemoryWithRegistry(registry *record.Registry) *Memory {
	return &Memory{
		entries:  make(map[string]entry),
		registry: registryOrDefault(registry),
	}
}

// Get returns a fresh instance of the record stored under key.
func (m *Memory) Get(_ context.Context, key string) (record.Variant, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, notFound(key)
	}
	return e.variant(m.registry), nil
}

// Set stores v under key, replacing any previous record.
func (m *Memory) Set(_ context.Context, key string, v record.Variant) error {
	e, err := newEntry(key, v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[key] = e
	return nil
}

// Has reports whether key is present.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.entries[key]
	return ok, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

// Keys returns all keys in sorted order.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return sortedKeys(m.entries), nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close releases the contents. Later calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

func sortedKeys(entries map[string]entry) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
