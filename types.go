// Package localeprefs defines the core types of the locale preference layer.
package localeprefs

import (
	"time"

	"github.com/CreativeUnicorns/localeprefs/locale"
)

// Source records how a locale preference was obtained.
type Source string

const (
	// SourceUser is an explicit choice made by the user.
	SourceUser Source = "user"
	// SourceAuto is a heuristic detection.
	SourceAuto Source = "auto"
	// SourceBrowser comes from Accept-Language negotiation.
	SourceBrowser Source = "browser"
	// SourceGeo comes from geolocation of the client.
	SourceGeo Source = "geo"
	// SourceCookie is a record rebuilt from the header store's locale mirror.
	SourceCookie Source = "cookie"
	// SourceDefault is the configured fallback locale.
	SourceDefault Source = "default"
)

var knownSources = map[Source]bool{
	SourceUser:    true,
	SourceAuto:    true,
	SourceBrowser: true,
	SourceGeo:     true,
	SourceCookie:  true,
	SourceDefault: true,
}

// Confidence assigned to records the layer creates on its own.
const (
	recoveredConfidence = 0.8
	defaultConfidence   = 0.5
)

const (
	// DefaultPreferenceKey is the persistent store key holding the current record.
	DefaultPreferenceKey = "locale_preference"
	// DefaultLocaleCookie is the header store entry mirroring the locale.
	DefaultLocaleCookie = "NEXT_LOCALE"
	// DefaultPersistentBudget is the per-client persistent store budget (5MB).
	DefaultPersistentBudget int64 = 5 * 1024 * 1024
	// DefaultHeaderBudget is the header store budget (4KB).
	DefaultHeaderBudget int64 = 4 * 1024
)

// PreferenceRecord is the canonical locale preference with provenance.
// At most one record is current per preference key.
type PreferenceRecord struct {
	// Locale is a code from the configured locale set.
	Locale string `json:"locale"`
	// Source tells where the locale came from.
	Source Source `json:"source"`
	// Confidence is a heuristic trust score, expected in [0,1].
	Confidence float64 `json:"confidence"`
	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Metadata is an open key/value bag.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Time returns Timestamp as a time.Time.
func (r PreferenceRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// clone copies the record including its metadata map.
func (r PreferenceRecord) clone() PreferenceRecord {
	if r.Metadata != nil {
		md := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		r.Metadata = md
	}
	return r
}

// PreferenceUpdate is the partial record accepted by SaveUserPreference.
// A zero Source means SourceUser and a nil Confidence means 1.
type PreferenceUpdate struct {
	Locale     string         `json:"locale"`
	Source     Source         `json:"source,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Config holds the internal configuration of a Manager. It is populated by
// Options passed to New.
type Config struct {
	persistent    PersistentStore
	header        HeaderStore
	cache         *CacheManager
	logger        Logger
	locales       *locale.Set
	encryptor     Encryptor
	clientID      string
	preferenceKey string
	localeCookie  string
	now           func() time.Time
}

// Option configures a Manager.
type Option func(*Config)

// WithPersistentStore sets the large, session-surviving store. Without it the
// Manager behaves as if that store were unavailable.
func WithPersistentStore(s PersistentStore) Option {
	return func(c *Config) {
		c.persistent = s
	}
}

// WithHeaderStore sets the cookie-backed store. Without it the Manager
// behaves as if that store were unavailable.
func WithHeaderStore(s HeaderStore) Option {
	return func(c *Config) {
		c.header = s
	}
}

// WithCache shares a CacheManager between Managers, typically one per client.
// If unset, each Manager gets a private CacheManager.
func WithCache(cm *CacheManager) Option {
	return func(c *Config) {
		c.cache = cm
	}
}

// WithLogger sets the Logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithLocales sets the allowed locales and the default used when nothing
// usable is stored.
func WithLocales(s *locale.Set) Option {
	return func(c *Config) {
		c.locales = s
	}
}

// WithEncryption seals records before they reach the persistent store.
// The header store mirror stays plaintext so servers can read it.
func WithEncryption(e Encryptor) Option {
	return func(c *Config) {
		c.encryptor = e
	}
}

// WithClientID names the client whose data the Manager handles. It is used
// as the encryption context and as a log field.
func WithClientID(id string) Option {
	return func(c *Config) {
		c.clientID = id
	}
}

// WithPreferenceKey overrides DefaultPreferenceKey.
func WithPreferenceKey(key string) Option {
	return func(c *Config) {
		c.preferenceKey = key
	}
}

// WithLocaleCookie overrides DefaultLocaleCookie.
func WithLocaleCookie(name string) Option {
	return func(c *Config) {
		c.localeCookie = name
	}
}

// WithClock replaces time.Now for record timestamps and, when the Manager
// builds its own CacheManager, for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.now = now
	}
}
