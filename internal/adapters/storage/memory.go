package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MemoryStore is a process-lifetime key-value store. It backs the session
// store and the "memory" storage driver.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty store.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get implements ports.KeyValueStore.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", domain.NewNotFoundError("storage key", key)
	}

	return v, nil
}

// Set implements ports.KeyValueStore.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

// Remove implements ports.KeyValueStore.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}

// Snapshot returns a copy of every stored pair.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.values)
}

// Close implements io.Closer.
func (s *MemoryStore) Close() error {
	return nil
}

// Name implements ports.HealthChecker.
func (s *MemoryStore) Name() string {
	return "storage.memory"
}

// Check implements ports.HealthChecker. Memory is always available.
func (s *MemoryStore) Check(context.Context) error {
	return nil
}
