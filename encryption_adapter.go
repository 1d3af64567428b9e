// Package localeprefs provides an adapter for the encryption package.
package localeprefs

import (
	"github.com/CreativeUnicorns/localeprefs/encryption"
)

// EncryptionAdapter lets an encryption.Manager seal persisted records.
type EncryptionAdapter struct {
	manager *encryption.Manager
}

var _ Encryptor = (*EncryptionAdapter)(nil)

// NewEncryptionAdapter builds an adapter from the key in
// encryption.EnvKeyName, failing fast when the key is missing or short.
func NewEncryptionAdapter() (*EncryptionAdapter, error) {
	manager, err := encryption.NewManager()
	if err != nil {
		return nil, err
	}
	return &EncryptionAdapter{manager: manager}, nil
}

// NewEncryptionAdapterWithKey builds an adapter from explicit key material.
func NewEncryptionAdapterWithKey(key []byte) (*EncryptionAdapter, error) {
	manager, err := encryption.NewManagerWithKey(key)
	if err != nil {
		return nil, err
	}
	return &EncryptionAdapter{manager: manager}, nil
}

// Seal encrypts plaintext bound to context.
func (e *EncryptionAdapter) Seal(plaintext, context string) (string, error) {
	return e.manager.Seal(plaintext, context)
}

// Open decrypts a value sealed with the same context.
func (e *EncryptionAdapter) Open(encoded, context string) (string, error) {
	return e.manager.Open(encoded, context)
}
