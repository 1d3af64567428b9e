package storage

import (
	"context"
	"sync"

	"github.com/CreativeUnicorns/localeprefs"
)

// MemoryStorage keeps every client's entries in a map.
// This is useful for testing or single-process servers where persistence is not required.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]map[string][]byte // clientID -> key -> value
}

// NewMemoryStorage creates a new instance of MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]map[string][]byte),
	}
}

// Get returns a copy of the value stored for clientID and key.
// It returns localeprefs.ErrNotFound if nothing is stored.
func (s *MemoryStorage) Get(_ context.Context, clientID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[clientID][key]
	if !ok {
		return nil, localeprefs.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value.
func (s *MemoryStorage) Set(_ context.Context, clientID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[clientID]; !ok {
		s.entries[clientID] = make(map[string][]byte)
	}
	s.entries[clientID][key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the value for clientID and key.
// It returns localeprefs.ErrNotFound if nothing is stored.
func (s *MemoryStorage) Delete(_ context.Context, clientID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.entries[clientID]
	if !ok {
		return localeprefs.ErrNotFound
	}
	if _, ok := client[key]; !ok {
		return localeprefs.ErrNotFound
	}

	delete(client, key)
	// Drop the client's map once it is empty.
	if len(client) == 0 {
		delete(s.entries, clientID)
	}
	return nil
}

// Usage sums key and value bytes for clientID.
func (s *MemoryStorage) Usage(_ context.Context, clientID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	for key, value := range s.entries[clientID] {
		used += entrySize(key, value)
	}
	return used, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(context.Context) error {
	return nil
}

// Close is a no-op for MemoryStorage as there are no external resources to release.
func (s *MemoryStorage) Close() error {
	return nil
}
