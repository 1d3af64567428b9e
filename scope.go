package localeprefs

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// writeLocks serializes the budget check and write of a client's entries.
// Clients share a stripe when their IDs hash alike.
var writeLocks [64]sync.Mutex

func clientWriteLock(clientID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return &writeLocks[h.Sum32()%uint32(len(writeLocks))]
}

// scopedStore presents one client's slice of a Storage as a PersistentStore.
type scopedStore struct {
	storage  Storage
	clientID string
	budget   int64
}

// NewScopedStore adapts s to the PersistentStore contract for clientID.
// Writes that would take the client's usage past budget fail with
// ErrQuotaExceeded; a budget <= 0 uses DefaultPersistentBudget.
//
// The budget holds for writers in this process. Processes sharing a backend
// can each pass the check before either write lands.
func NewScopedStore(s Storage, clientID string, budget int64) PersistentStore {
	if budget <= 0 {
		budget = DefaultPersistentBudget
	}
	return &scopedStore{storage: s, clientID: clientID, budget: budget}
}

func (s *scopedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.storage.Get(ctx, s.clientID, key)
}

func (s *scopedStore) Set(ctx context.Context, key string, value []byte) error {
	mu := clientWriteLock(s.clientID)
	mu.Lock()
	defer mu.Unlock()

	used, err := s.storage.Usage(ctx, s.clientID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// The entry being replaced no longer counts against the budget.
	if old, err := s.storage.Get(ctx, s.clientID, key); err == nil {
		used -= int64(len(key) + len(old))
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if projected := used + int64(len(key)+len(value)); projected > s.budget {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, projected, s.budget)
	}
	return s.storage.Set(ctx, s.clientID, key, value)
}

func (s *scopedStore) Remove(ctx context.Context, key string) error {
	err := s.storage.Delete(ctx, s.clientID, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *scopedStore) Usage(ctx context.Context) (int64, error) {
	return s.storage.Usage(ctx, s.clientID)
}

func (s *scopedStore) Available(ctx context.Context) bool {
	return s.storage.Ping(ctx) == nil
}

// Budget returns the client's byte budget.
func (s *scopedStore) Budget() int64 {
	return s.budget
}

// unavailableStore stands in for a store that is not configured, like a
// server-side context with no browser storage.
type unavailableStore struct{}

func (unavailableStore) Get(context.Context, string) ([]byte, error) {
	return nil, ErrStorageUnavailable
}

func (unavailableStore) Set(context.Context, string, []byte) error {
	return ErrStorageUnavailable
}

func (unavailableStore) Remove(context.Context, string) error {
	return ErrStorageUnavailable
}

func (unavailableStore) Usage(context.Context) (int64, error) {
	return 0, ErrStorageUnavailable
}

func (unavailableStore) Available(context.Context) bool {
	return false
}

// unavailableHeader is the HeaderStore counterpart of unavailableStore.
type unavailableHeader struct{}

func (unavailableHeader) Get(context.Context, string) (string, error) {
	return "", ErrStorageUnavailable
}

func (unavailableHeader) Set(context.Context, string, string) error {
	return ErrStorageUnavailable
}

func (unavailableHeader) Remove(context.Context, string) error {
	return ErrStorageUnavailable
}

func (unavailableHeader) Usage(context.Context) (int64, error) {
	return 0, ErrStorageUnavailable
}

func (unavailableHeader) Available(context.Context) bool {
	return false
}
