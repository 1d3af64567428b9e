// Package encryption seals persisted locale preference records with AES-256-GCM.
// Ciphertexts are bound to a context string (the client ID) so a record
// copied into another client's namespace fails to open.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// MinKeyLength is the minimum length of the key material in bytes.
	MinKeyLength = 32
	// EnvKeyName is the environment variable holding the key material.
	EnvKeyName = "LOCALEPREFS_ENCRYPTION_KEY"
)

var (
	// ErrInvalidKeyLength is returned when the key material is shorter than MinKeyLength.
	ErrInvalidKeyLength = errors.New("encryption key must be at least 32 bytes")
	// ErrKeyNotFound is returned when EnvKeyName is unset or empty.
	ErrKeyNotFound = errors.New("encryption key not found in environment variable " + EnvKeyName)
	// ErrEncryptionFailed wraps failures while sealing.
	ErrEncryptionFailed = errors.New("encryption operation failed")
	// ErrDecryptionFailed wraps failures while opening, including context mismatches.
	ErrDecryptionFailed = errors.New("decryption operation failed")
	// ErrInvalidCiphertext is returned for ciphertexts shorter than the nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
)

// Manager seals and opens values. The AEAD is built once at construction.
type Manager struct {
	key  []byte
	aead cipher.AEAD
}

// NewManager builds a Manager from the key material in EnvKeyName.
func NewManager() (*Manager, error) {
	keyStr := os.Getenv(EnvKeyName)
	if keyStr == "" {
		return nil, ErrKeyNotFound
	}
	return NewManagerWithKey([]byte(keyStr))
}

// NewManagerWithKey builds a Manager from raw key material. The AES-256 key
// is the SHA-256 digest of the material, so any length >= MinKeyLength works.
func NewManagerWithKey(keyMaterial []byte) (*Manager, error) {
	if len(keyMaterial) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidKeyLength, len(keyMaterial), MinKeyLength)
	}

	sum := sha256.Sum256(keyMaterial)
	key := sum[:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %v", ErrEncryptionFailed, err)
	}
	return &Manager{key: key, aead: aead}, nil
}

// Encrypt seals plaintext without a context.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	return m.Seal(plaintext, "")
}

// Decrypt opens a value produced by Encrypt.
func (m *Manager) Decrypt(encoded string) (string, error) {
	return m.Open(encoded, "")
}

// Seal encrypts plaintext bound to context and returns base64(nonce|ciphertext).
// An empty plaintext seals to an empty string.
func (m *Manager) Seal(plaintext, context string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: failed to generate nonce: %v", ErrEncryptionFailed, err)
	}

	sealed := m.aead.Seal(nonce, nonce, []byte(plaintext), []byte(context))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal with the same context.
func (m *Manager) Open(encoded, context string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecryptionFailed, err)
	}

	nonceSize := m.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := m.aead.Open(nil, nonce, ciphertext, []byte(context))
	if err != nil {
		return "", fmt.Errorf("%w: failed to decrypt: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// ValidateKey checks EnvKeyName without building a Manager, for fast failure at startup.
func ValidateKey() error {
	keyStr := os.Getenv(EnvKeyName)
	if keyStr == "" {
		return ErrKeyNotFound
	}
	if len(keyStr) < MinKeyLength {
		return fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidKeyLength, len(keyStr), MinKeyLength)
	}
	return nil
}
