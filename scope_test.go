package localeprefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedStore(t *testing.T) {
	ctx := context.Background()
	backend := NewMockStorage()
	a := NewScopedStore(backend, "client-a", 32)
	b := NewScopedStore(backend, "client-b", 32)

	t.Run("isolates_clients", func(t *testing.T) {
		require.NoError(t, a.Set(ctx, "k", []byte("alpha")))

		got, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), got)

		_, err = b.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("usage", func(t *testing.T) {
		used, err := a.Usage(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len("k")+len("alpha")), used)
	})

	t.Run("quota", func(t *testing.T) {
		err := a.Set(ctx, "big", make([]byte, 64))
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		// Replacing an entry only counts the new value.
		require.NoError(t, a.Set(ctx, "k", make([]byte, 31)))
		err = a.Set(ctx, "k2", []byte("x"))
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("remove_missing_is_not_an_error", func(t *testing.T) {
		assert.NoError(t, b.Remove(ctx, "missing"))
		require.NoError(t, a.Remove(ctx, "k"))
		_, err := a.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("availability", func(t *testing.T) {
		assert.True(t, a.Available(ctx))
		backend.pingErr = errors.New("down")
		assert.False(t, a.Available(ctx))
		backend.pingErr = nil
	})

	t.Run("default_budget", func(t *testing.T) {
		s := NewScopedStore(backend, "c", 0)
		assert.Equal(t, DefaultPersistentBudget, s.(budgeted).Budget())
	})
}

func TestScopedStore_ConcurrentWritesStayInBudget(t *testing.T) {
	ctx := context.Background()
	backend := NewMockStorage()

	// Room for one 12-byte entry, not two.
	const writers = 16
	var stored atomic.Int32
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A store per writer, like one per request.
			s := NewScopedStore(backend, "client-a", 20)
			if err := s.Set(ctx, fmt.Sprintf("k%d", i%10), []byte("0123456789")); err == nil {
				stored.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrQuotaExceeded)
			}
		}()
	}
	wg.Wait()

	used, err := backend.Usage(ctx, "client-a")
	require.NoError(t, err)
	assert.LessOrEqual(t, used, int64(20))
	assert.GreaterOrEqual(t, stored.Load(), int32(1))
}

func TestManagerOverScopedStore(t *testing.T) {
	ctx := context.Background()
	backend := NewMockStorage()

	tiny := New(WithPersistentStore(NewScopedStore(backend, "c1", 10)), WithLogger(&MockLogger{}))
	res := tiny.SaveUserPreference(ctx, PreferenceUpdate{Locale: "en"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrQuotaExceeded.Error())

	roomy := New(WithPersistentStore(NewScopedStore(backend, "c2", 0)), WithLogger(&MockLogger{}))
	res = roomy.SaveUserPreference(ctx, PreferenceUpdate{Locale: "zh"})
	require.True(t, res.Success, res.Error)

	got := roomy.GetUserPreference(ctx)
	require.True(t, got.Success)
	assert.Equal(t, "zh", got.Data.Locale)
}

func TestUnavailableStores(t *testing.T) {
	ctx := context.Background()

	var s PersistentStore = unavailableStore{}
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, s.Set(ctx, "k", nil), ErrStorageUnavailable)
	assert.False(t, s.Available(ctx))

	var h HeaderStore = unavailableHeader{}
	_, err = h.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.False(t, h.Available(ctx))
}
