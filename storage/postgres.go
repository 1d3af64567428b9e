// Package storage provides a PostgreSQL-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/CreativeUnicorns/localeprefs"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS locale_preferences (
			client_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (client_id, key)
		);
	`

	upsertSQL = `
		INSERT INTO locale_preferences (client_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (client_id, key)
		DO UPDATE SET value = $3, updated_at = NOW()
	`

	selectSQL = `
		SELECT value FROM locale_preferences
		WHERE client_id = $1 AND key = $2
	`

	deleteSQL = `
		DELETE FROM locale_preferences
		WHERE client_id = $1 AND key = $2
	`

	usageSQL = `
		SELECT COALESCE(SUM(OCTET_LENGTH(key) + OCTET_LENGTH(value)), 0)
		FROM locale_preferences
		WHERE client_id = $1
	`
)

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage initializes a new PostgresStorage instance.
// It connects to the PostgreSQL database using the provided connection string and runs migrations.
func NewPostgresStorage(connString string) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close() // Attempt to close if ping fails
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close() // Attempt to close if migration fails
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *PostgresStorage) migrate() error {
	_, err := s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute create table statement: %w", err)
	}
	return nil
}

// Get returns the value stored for clientID and key.
// It returns ErrNotFound if the entry does not exist.
func (s *PostgresStorage) Get(ctx context.Context, clientID, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, selectSQL, clientID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, localeprefs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan entry for client '%s', key '%s': %w", clientID, key, err)
	}
	return value, nil
}

// Set stores or replaces the value for clientID and key.
func (s *PostgresStorage) Set(ctx context.Context, clientID, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertSQL, clientID, key, value); err != nil {
		return fmt.Errorf("postgres: failed to execute upsert for client '%s', key '%s': %w", clientID, key, err)
	}
	return nil
}

// Delete removes the entry for clientID and key.
// It returns ErrNotFound if the entry does not exist.
func (s *PostgresStorage) Delete(ctx context.Context, clientID, key string) error {
	result, err := s.db.ExecContext(ctx, deleteSQL, clientID, key)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute delete for client '%s', key '%s': %w", clientID, key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get affected rows for delete client '%s', key '%s': %w", clientID, key, err)
	}

	if rowsAffected == 0 {
		return localeprefs.ErrNotFound
	}

	return nil
}

// Usage sums key and value bytes for clientID.
func (s *PostgresStorage) Usage(ctx context.Context, clientID string) (int64, error) {
	var used int64
	if err := s.db.QueryRowContext(ctx, usageSQL, clientID).Scan(&used); err != nil {
		return 0, fmt.Errorf("postgres: failed to measure usage for client '%s': %w", clientID, err)
	}
	return used, nil
}

// Ping checks the database connection.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
