// errors.go
package localeprefs

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrInvalidLocale      = errors.New("invalid locale")
	ErrInvalidRecord      = errors.New("invalid preference record")
	ErrNotFound           = errors.New("preference not found")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrSerialization      = errors.New("preference serialization failed")
	ErrEncryption         = errors.New("preference encryption failed")
)
