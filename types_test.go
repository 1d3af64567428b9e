package localeprefs

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPreferenceRecordStruct(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := PreferenceRecord{
		Locale:     "zh",
		Source:     SourceUser,
		Confidence: 1,
		Timestamp:  now.UnixMilli(),
		Metadata:   map[string]any{"via": "settings"},
	}

	if rec.Locale != "zh" {
		t.Errorf("Expected Locale 'zh', got '%s'", rec.Locale)
	}
	if rec.Source != SourceUser {
		t.Errorf("Expected Source 'user', got '%s'", rec.Source)
	}
	if !rec.Time().Equal(now) {
		t.Errorf("Expected Time %v, got %v", now, rec.Time())
	}
}

func TestPreferenceRecordJSONFieldNames(t *testing.T) {
	rec := PreferenceRecord{Locale: "en", Source: SourceAuto, Confidence: 0.9, Timestamp: 1700000000000}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, name := range []string{"locale", "source", "confidence", "timestamp"} {
		if _, exists := fields[name]; !exists {
			t.Errorf("Expected field %q in %s", name, data)
		}
	}
	if _, exists := fields["metadata"]; exists {
		t.Errorf("Expected empty metadata to be omitted, got %s", data)
	}
}

func TestPreferenceRecordCloneCopiesMetadata(t *testing.T) {
	orig := PreferenceRecord{Locale: "en", Metadata: map[string]any{"k": "v"}}
	cp := orig.clone()
	cp.Metadata["k"] = "changed"

	if orig.Metadata["k"] != "v" {
		t.Errorf("Expected original metadata to be untouched, got %v", orig.Metadata["k"])
	}
}

func TestOptionsApplyToConfig(t *testing.T) {
	cfg := &Config{}
	clock := func() time.Time { return time.Unix(0, 0) }
	cache := NewCacheManager()

	for _, opt := range []Option{
		WithClientID("client-9"),
		WithPreferenceKey("pref"),
		WithLocaleCookie("LANG"),
		WithCache(cache),
		WithClock(clock),
	} {
		opt(cfg)
	}

	if cfg.clientID != "client-9" {
		t.Errorf("Expected clientID 'client-9', got '%s'", cfg.clientID)
	}
	if cfg.preferenceKey != "pref" {
		t.Errorf("Expected preferenceKey 'pref', got '%s'", cfg.preferenceKey)
	}
	if cfg.localeCookie != "LANG" {
		t.Errorf("Expected localeCookie 'LANG', got '%s'", cfg.localeCookie)
	}
	if cfg.cache != cache {
		t.Errorf("Expected shared cache to be set")
	}
	if cfg.now == nil || !cfg.now().Equal(time.Unix(0, 0)) {
		t.Errorf("Expected clock to be set")
	}
}

func TestNewFillsDefaults(t *testing.T) {
	m := New()

	if m.PreferenceKey() != DefaultPreferenceKey {
		t.Errorf("Expected preference key %q, got %q", DefaultPreferenceKey, m.PreferenceKey())
	}
	if m.config.localeCookie != DefaultLocaleCookie {
		t.Errorf("Expected locale cookie %q, got %q", DefaultLocaleCookie, m.config.localeCookie)
	}
	if m.Locales().Default() != "en" {
		t.Errorf("Expected default locale 'en', got %q", m.Locales().Default())
	}
	if m.Cache() == nil {
		t.Errorf("Expected a private cache")
	}
	if m.config.persistent.Available(t.Context()) {
		t.Errorf("Expected unconfigured persistent store to be unavailable")
	}
	if m.config.header.Available(t.Context()) {
		t.Errorf("Expected unconfigured header store to be unavailable")
	}
}
