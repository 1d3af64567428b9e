// Package storage provides the multi-client backends behind the persistent
// store: memory, SQLite, PostgreSQL and Redis.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/CreativeUnicorns/localeprefs"
)

var (
	_ localeprefs.Storage = (*MemoryStorage)(nil)
	_ localeprefs.Storage = (*SQLiteStorage)(nil)
	_ localeprefs.Storage = (*PostgresStorage)(nil)
	_ localeprefs.Storage = (*RedisStorage)(nil)
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver        string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (localeprefs.Storage, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		return NewMemoryStorage(), nil
	case DriverSQLite:
		return NewSQLiteStorage(opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresStorage(opts.DatabaseURL)
	case DriverRedis:
		return NewRedisStorage(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", localeprefs.ErrInvalidInput, opts.Driver)
	}
}

// entrySize is what a stored value counts against a client's budget.
func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
