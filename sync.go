package localeprefs

import (
	"context"
)

// Sync directions reported in SyncData.
const (
	SyncToHeader     = "persistent_to_header"
	SyncToPersistent = "header_to_persistent"
)

// SyncData reports what SyncPreferenceData changed.
type SyncData struct {
	Synced    bool   `json:"synced"`
	Locale    string `json:"locale,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// SyncPreferenceData converges the persistent record and the header store
// mirror. The persistent record wins when both exist; a header value alone
// is rebuilt into a persisted record. Invalid records and unsupported
// header values count as absent. A second call with no external change in
// between reports Synced=false.
func (m *Manager) SyncPreferenceData(ctx context.Context) (res Result[SyncData]) {
	defer m.recoverResult("sync_preference_data", &res)
	return fromErr(m.syncPreferenceData(ctx))
}

func (m *Manager) syncPreferenceData(ctx context.Context) (SyncData, error) {
	stored := m.loadStored(ctx)
	headerCode, hasHeader := m.usableHeaderLocale(ctx)

	switch {
	case stored.valid():
		rec := *stored.record
		if hasHeader && headerCode == rec.Locale {
			return SyncData{Locale: rec.Locale}, nil
		}
		if !m.writeHeader(ctx, rec.Locale) {
			return SyncData{Locale: rec.Locale}, nil
		}
		m.config.cache.UpdateCache(m.config.preferenceKey, rec)
		m.config.logger.Info("Synchronized header store", "client_id", m.config.clientID, "locale", rec.Locale)
		return SyncData{Synced: true, Locale: rec.Locale, Direction: SyncToHeader}, nil

	case hasHeader:
		rec, err := m.saveUserPreference(ctx, m.recoveredUpdate(headerCode))
		if err != nil {
			// The failure is already logged; the stores stay as they were.
			return SyncData{Locale: headerCode}, nil
		}
		m.config.logger.Info("Rebuilt persisted preference from header store", "client_id", m.config.clientID, "locale", rec.Locale)
		return SyncData{Synced: true, Locale: rec.Locale, Direction: SyncToPersistent}, nil

	default:
		return SyncData{}, nil
	}
}

// recoveredUpdate builds the record saved when only the header store holds
// a usable locale.
func (m *Manager) recoveredUpdate(code string) PreferenceUpdate {
	confidence := recoveredConfidence
	return PreferenceUpdate{
		Locale:     code,
		Source:     SourceCookie,
		Confidence: &confidence,
		Metadata:   map[string]any{"recovered_from": "header"},
	}
}

// defaultUpdate builds the record saved when no store holds anything usable.
func (m *Manager) defaultUpdate() PreferenceUpdate {
	confidence := defaultConfidence
	return PreferenceUpdate{
		Locale:     m.config.locales.Default(),
		Source:     SourceDefault,
		Confidence: &confidence,
	}
}
