// manager.go
package localeprefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CreativeUnicorns/localeprefs/locale"
)

// Manager reads, writes and reconciles one client's locale preference across
// the persistent store, the header store and the cache. Managers are cheap;
// servers build one per request and share the CacheManager per client.
type Manager struct {
	config *Config
}

// New builds a Manager. Stores that are not configured behave as unavailable.
func New(opts ...Option) *Manager {
	cfg := &Config{
		preferenceKey: DefaultPreferenceKey,
		localeCookie:  DefaultLocaleCookie,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = NewDefaultLogger()
	}
	if cfg.locales == nil {
		cfg.locales = locale.DefaultSet()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.persistent == nil {
		cfg.persistent = unavailableStore{}
	}
	if cfg.header == nil {
		cfg.header = unavailableHeader{}
	}
	if cfg.cache == nil {
		cfg.cache = NewCacheManager(WithCacheClock(cfg.now))
	}

	return &Manager{config: cfg}
}

// Cache returns the CacheManager in front of the stores.
func (m *Manager) Cache() *CacheManager {
	return m.config.cache
}

// Locales returns the allowed locale set.
func (m *Manager) Locales() *locale.Set {
	return m.config.locales
}

// PreferenceKey returns the key the current record is stored and cached under.
func (m *Manager) PreferenceKey() string {
	return m.config.preferenceKey
}

// GetUserPreference reads and validates the persisted record. An absent or
// invalid record is reported as a failure.
func (m *Manager) GetUserPreference(ctx context.Context) (res Result[PreferenceRecord]) {
	defer m.recoverResult("get_user_preference", &res)

	stored := m.loadStored(ctx)
	if !stored.present {
		return fail[PreferenceRecord](ErrNotFound)
	}
	if !stored.valid() {
		return fail[PreferenceRecord](stored.validation.Err())
	}
	return ok(*stored.record)
}

// SaveUserPreference completes upd into a record, validates it, persists it
// and mirrors its locale to the header store. The cache is updated with the
// saved record.
func (m *Manager) SaveUserPreference(ctx context.Context, upd PreferenceUpdate) (res Result[PreferenceRecord]) {
	defer m.recoverResult("save_user_preference", &res)
	return fromErr(m.saveUserPreference(ctx, upd))
}

// RemoveUserPreference deletes the record, its header mirror and its cache entry.
func (m *Manager) RemoveUserPreference(ctx context.Context) (res Result[bool]) {
	defer m.recoverResult("remove_user_preference", &res)

	if err := m.config.persistent.Remove(ctx, m.config.preferenceKey); err != nil {
		m.warnStore("Failed to remove persisted preference", err)
	}
	if err := m.config.header.Remove(ctx, m.config.localeCookie); err != nil {
		m.warnStore("Failed to remove header locale", err)
	}
	m.config.cache.ClearCache(m.config.preferenceKey)
	return ok(true)
}

// ValidatePreferenceData checks rec against the Manager's locale set and clock.
func (m *Manager) ValidatePreferenceData(rec *PreferenceRecord) ValidationResult {
	return ValidateRecord(rec, m.config.locales, m.config.now())
}

// Preference serves the cached record while it is fresh and otherwise reads
// the persistent store, seeding the cache on success.
func (m *Manager) Preference(ctx context.Context) (res Result[PreferenceRecord]) {
	defer m.recoverResult("preference", &res)

	if rec, hit := m.config.cache.GetCachedPreference(m.config.preferenceKey); hit {
		return ok(*rec)
	}
	res = m.GetUserPreference(ctx)
	if res.Success {
		m.config.cache.UpdateCache(m.config.preferenceKey, *res.Data)
	}
	return res
}

// WarmUpCache loads the persisted record into the cache. It reports whether
// the cache was seeded; failures are silent.
func (m *Manager) WarmUpCache(ctx context.Context) (seeded bool) {
	defer func() {
		if r := recover(); r != nil {
			m.config.logger.Warn("Cache warm-up failed", "client_id", m.config.clientID, "error", panicMessage(r))
			seeded = false
		}
	}()
	return m.warmUpCache(ctx)
}

func (m *Manager) warmUpCache(ctx context.Context) bool {
	stored := m.loadStored(ctx)
	if !stored.valid() {
		return false
	}
	m.config.cache.UpdateCache(m.config.preferenceKey, *stored.record)
	return true
}

// Resolution is the locale chosen for a request and where it came from.
type Resolution struct {
	Locale     string  `json:"locale"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
	// Origin is one of "cache", "persistent", "header", "accept-language" or "default".
	Origin string `json:"origin"`
}

// ResolveLocale picks the locale to serve: the cached or persisted record,
// then the header store mirror, then Accept-Language negotiation, then the
// default. Only the cache is written, when a persisted record is read.
func (m *Manager) ResolveLocale(ctx context.Context, acceptLanguage string) (res Resolution) {
	def := m.config.locales.Default()
	defer func() {
		if r := recover(); r != nil {
			m.config.logger.Error("Recovered from panic", "op", "resolve_locale", "client_id", m.config.clientID, "error", panicMessage(r))
			res = Resolution{Locale: def, Source: SourceDefault, Confidence: defaultConfidence, Origin: "default"}
		}
	}()

	if rec, hit := m.config.cache.GetCachedPreference(m.config.preferenceKey); hit {
		return Resolution{Locale: rec.Locale, Source: rec.Source, Confidence: rec.Confidence, Origin: "cache"}
	}
	if stored := m.loadStored(ctx); stored.valid() {
		m.config.cache.UpdateCache(m.config.preferenceKey, *stored.record)
		rec := stored.record
		return Resolution{Locale: rec.Locale, Source: rec.Source, Confidence: rec.Confidence, Origin: "persistent"}
	}
	if code, found := m.usableHeaderLocale(ctx); found {
		return Resolution{Locale: code, Source: SourceCookie, Confidence: recoveredConfidence, Origin: "header"}
	}
	if code, conf := m.config.locales.Negotiate(acceptLanguage); conf > 0 {
		return Resolution{Locale: code, Source: SourceBrowser, Confidence: conf, Origin: "accept-language"}
	}
	return Resolution{Locale: def, Source: SourceDefault, Confidence: defaultConfidence, Origin: "default"}
}

func (m *Manager) saveUserPreference(ctx context.Context, upd PreferenceUpdate) (PreferenceRecord, error) {
	if strings.TrimSpace(upd.Locale) == "" {
		return PreferenceRecord{}, fmt.Errorf("%w: locale is required", ErrInvalidInput)
	}

	rec := PreferenceRecord{
		Locale:     upd.Locale,
		Source:     upd.Source,
		Confidence: 1,
		Timestamp:  m.config.now().UnixMilli(),
		Metadata:   upd.Metadata,
	}
	if canonical := m.config.locales.Canonical(upd.Locale); canonical != "" {
		rec.Locale = canonical
	}
	if rec.Source == "" {
		rec.Source = SourceUser
	}
	if upd.Confidence != nil {
		rec.Confidence = *upd.Confidence
	}
	rec = rec.clone()

	if v := m.ValidatePreferenceData(&rec); !v.IsValid {
		return PreferenceRecord{}, v.Err()
	}

	if err := m.writeRecord(ctx, rec); err != nil {
		m.warnStore("Failed to persist preference", err)
		return PreferenceRecord{}, err
	}
	m.writeHeader(ctx, rec.Locale)
	m.config.cache.UpdateCache(m.config.preferenceKey, rec)

	m.config.logger.Debug("Saved locale preference", "client_id", m.config.clientID, "locale", rec.Locale, "source", rec.Source)
	return rec, nil
}

// storedRecord is what the persistent store currently holds under the
// preference key.
type storedRecord struct {
	// present is true when anything is stored, valid or not.
	present    bool
	record     *PreferenceRecord
	validation ValidationResult
}

func (s storedRecord) valid() bool {
	return s.present && s.record != nil && s.validation.IsValid
}

func (m *Manager) loadStored(ctx context.Context) storedRecord {
	raw, err := m.config.persistent.Get(ctx, m.config.preferenceKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.warnStore("Failed to read persisted preference", err)
		}
		return storedRecord{}
	}

	invalid := func(reason string) storedRecord {
		return storedRecord{present: true, validation: ValidationResult{Errors: []string{reason}, Warnings: []string{}}}
	}

	if m.config.encryptor != nil {
		plain, err := m.config.encryptor.Open(string(raw), m.config.clientID)
		if err != nil {
			m.warnStore("Failed to decrypt persisted preference", err)
			return invalid("record cannot be decrypted")
		}
		raw = []byte(plain)
	}

	var rec PreferenceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return invalid("record is not valid JSON")
	}
	// Compare and mirror in the set's spelling, so "ZH" matches a "zh" header.
	if code := m.config.locales.Canonical(rec.Locale); code != "" {
		rec.Locale = code
	}
	return storedRecord{present: true, record: &rec, validation: m.ValidatePreferenceData(&rec)}
}

func (m *Manager) writeRecord(ctx context.Context, rec PreferenceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if m.config.encryptor != nil {
		sealed, err := m.config.encryptor.Seal(string(data), m.config.clientID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		data = []byte(sealed)
	}
	return m.config.persistent.Set(ctx, m.config.preferenceKey, data)
}

// headerLocale returns the raw header store value, if any.
func (m *Manager) headerLocale(ctx context.Context) (string, bool) {
	value, err := m.config.header.Get(ctx, m.config.localeCookie)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.warnStore("Failed to read header locale", err)
		}
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// usableHeaderLocale returns the header store value in canonical form when
// it names a supported locale.
func (m *Manager) usableHeaderLocale(ctx context.Context) (string, bool) {
	value, found := m.headerLocale(ctx)
	if !found {
		return "", false
	}
	canonical := m.config.locales.Canonical(value)
	return canonical, canonical != ""
}

func (m *Manager) writeHeader(ctx context.Context, code string) bool {
	if err := m.config.header.Set(ctx, m.config.localeCookie, code); err != nil {
		m.warnStore("Failed to mirror locale to header store", err)
		return false
	}
	return true
}

func (m *Manager) warnStore(msg string, err error) {
	m.config.logger.Warn(msg, "client_id", m.config.clientID, "error", err)
}
