// Package store caches records fetched from remote dataset sources so that
// repeated runs do not re-download them. Backends: memory, badger, redis.
package store

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented cache with per-entry TTL.
type Store interface {
	// Get retrieves a value. The second return is false if absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a value.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

type memoryEntry struct {
	value      []byte
	expiration time.Time
}

func (e *memoryEntry) expired() bool {
	return !e.expiration.IsZero() && time.Now().After(e.expiration)
}

// MemoryStore is the in-process fallback backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || e.expired() {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiration = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
