// Package localeprefs defines the store interfaces the preference layer reconciles.
package localeprefs

import (
	"context"
)

// Storage is a multi-client persistent backend. Values are opaque bytes
// (the Preference Core writes JSON). Get returns ErrNotFound for a missing key.
type Storage interface {
	Get(ctx context.Context, clientID, key string) ([]byte, error)
	Set(ctx context.Context, clientID, key string, value []byte) error
	Delete(ctx context.Context, clientID, key string) error
	// Usage reports the bytes held for clientID, counting keys and values.
	Usage(ctx context.Context, clientID string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// PersistentStore is one client's view of the large, session-surviving store.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Usage(ctx context.Context) (int64, error)
	Available(ctx context.Context) bool
}

// HeaderStore is the small store whose contents travel with every request
// (cookies). Get returns ErrNotFound for a missing name.
type HeaderStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Remove(ctx context.Context, name string) error
	Usage(ctx context.Context) (int64, error)
	Available(ctx context.Context) bool
}

// Encryptor seals persisted records. The context string binds a ciphertext
// to its owner.
type Encryptor interface {
	Seal(plaintext, context string) (string, error)
	Open(encoded, context string) (string, error)
}
