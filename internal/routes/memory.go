package routes

import (
	"context"
	"sync"
)

// MemoryStore keeps the latest snapshot in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Route
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(_ context.Context) ([]Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Route, len(m.items))
	copy(result, m.items)
	return result, nil
}

// Save replaces the stored snapshot.
func (m *MemoryStore) Save(_ context.Context, routes []Route) error {
	items := make([]Route, len(routes))
	copy(items, routes)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	return nil
}
