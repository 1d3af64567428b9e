// Package storage provides a SQLite-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/CreativeUnicorns/localeprefs"
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS locale_preferences (
			client_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (client_id, key)
		);
	`

	sqliteUpsertSQL = `
		INSERT INTO locale_preferences (client_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(client_id, key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	sqliteSelectSQL = `
		SELECT value FROM locale_preferences
		WHERE client_id = ? AND key = ?
	`

	sqliteDeleteSQL = `
		DELETE FROM locale_preferences
		WHERE client_id = ? AND key = ?
	`

	sqliteUsageSQL = `
		SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(value)), 0)
		FROM locale_preferences
		WHERE client_id = ?
	`
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage initializes a new SQLiteStorage instance.
// It connects to the SQLite database at the specified path and runs migrations.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", localeprefs.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(sqliteCreateTableSQL)
	return err
}

// Get returns the value stored for clientID and key.
// It returns ErrNotFound if the entry does not exist.
func (s *SQLiteStorage) Get(ctx context.Context, clientID, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, sqliteSelectSQL, clientID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, localeprefs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return value, nil
}

// Set stores or replaces the value for clientID and key.
func (s *SQLiteStorage) Set(ctx context.Context, clientID, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, sqliteUpsertSQL, clientID, key, value); err != nil {
		return fmt.Errorf("failed to set entry: %w", err)
	}
	return nil
}

// Delete removes the entry for clientID and key.
// It returns ErrNotFound if the entry does not exist.
func (s *SQLiteStorage) Delete(ctx context.Context, clientID, key string) error {
	result, err := s.db.ExecContext(ctx, sqliteDeleteSQL, clientID, key)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return localeprefs.ErrNotFound
	}

	return nil
}

// Usage sums key and value bytes for clientID.
func (s *SQLiteStorage) Usage(ctx context.Context, clientID string) (int64, error) {
	var used int64
	if err := s.db.QueryRowContext(ctx, sqliteUsageSQL, clientID).Scan(&used); err != nil {
		return 0, fmt.Errorf("failed to measure usage: %w", err)
	}
	return used, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the SQLite database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
