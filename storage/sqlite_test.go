package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/localeprefs"
)

// setupSQLiteTest creates a new SQLite database for testing and closes it when the test ends.
func setupSQLiteTest(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "prefs.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "Failed to initialize SQLiteStorage")

	t.Cleanup(func() {
		_ = storage.Close()
	})
	return storage, dbPath
}

func TestSQLiteStorage_Contract(t *testing.T) {
	storage, _ := setupSQLiteTest(t)
	runStorageContract(t, storage)
}

func TestSQLiteStorage_Persists(t *testing.T) {
	storage, dbPath := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "client-a", "locale_preference", []byte(`{"locale":"zh"}`)))
	require.NoError(t, storage.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "migrations must be idempotent")
	defer reopened.Close()

	got, err := reopened.Get(ctx, "client-a", "locale_preference")
	require.NoError(t, err)
	assert.Equal(t, `{"locale":"zh"}`, string(got))
}

func TestSQLiteStorage_UsageCountsBytes(t *testing.T) {
	storage, _ := setupSQLiteTest(t)
	ctx := context.Background()

	// Multi-byte characters are counted in bytes, not runes.
	require.NoError(t, storage.Set(ctx, "c", "名", []byte("中文")))
	used, err := storage.Usage(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(len("名")+len("中文")), used)
}

func TestSQLiteStorage_ClosedDatabase(t *testing.T) {
	storage, _ := setupSQLiteTest(t)
	require.NoError(t, storage.Close())
	ctx := context.Background()

	_, err := storage.Get(ctx, "c", "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, localeprefs.ErrNotFound)
	assert.Error(t, storage.Set(ctx, "c", "k", []byte("v")))
	assert.Error(t, storage.Ping(ctx))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, localeprefs.ErrInvalidInput)
}
