package cookie

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/CreativeUnicorns/localeprefs"
)

// MemoryJar is a HeaderStore over a map with the same budget rules as Jar.
// The CLI uses it to stand in for a browser's cookies.
type MemoryJar struct {
	mu          sync.RWMutex
	values      map[string]string
	budget      int64
	unavailable bool
}

// NewMemoryJar returns a MemoryJar holding a copy of seed. A budget <= 0
// means localeprefs.DefaultHeaderBudget.
func NewMemoryJar(budget int64, seed map[string]string) *MemoryJar {
	if budget <= 0 {
		budget = localeprefs.DefaultHeaderBudget
	}
	values := make(map[string]string, len(seed))
	maps.Copy(values, seed)
	return &MemoryJar{values: values, budget: budget}
}

func (m *MemoryJar) Get(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return "", localeprefs.ErrStorageUnavailable
	}
	value, ok := m.values[name]
	if !ok {
		return "", localeprefs.ErrNotFound
	}
	return value, nil
}

func (m *MemoryJar) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return localeprefs.ErrStorageUnavailable
	}

	next := maps.Clone(m.values)
	next[name] = value
	if projected := cookieStringSize(next); projected > m.budget {
		return fmt.Errorf("%w: cookies would use %d of %d bytes", localeprefs.ErrQuotaExceeded, projected, m.budget)
	}
	m.values = next
	return nil
}

func (m *MemoryJar) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return localeprefs.ErrStorageUnavailable
	}
	delete(m.values, name)
	return nil
}

func (m *MemoryJar) Usage(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return 0, localeprefs.ErrStorageUnavailable
	}
	return cookieStringSize(m.values), nil
}

func (m *MemoryJar) Available(context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.unavailable
}

// Budget returns the cookie byte budget.
func (m *MemoryJar) Budget() int64 {
	return m.budget
}

// SetAvailable toggles availability, as when a browser blocks cookies.
func (m *MemoryJar) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

// Values returns a copy of the stored cookies.
func (m *MemoryJar) Values() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
