package localeprefs

import (
	"context"
	"fmt"
	"strings"
)

// ConsistencyReport lists the problems found across the stores and cache.
type ConsistencyReport struct {
	IsConsistent bool     `json:"isConsistent"`
	Issues       []string `json:"issues"`
}

// RepairData reports what FixDataInconsistency did.
type RepairData struct {
	Fixed   bool     `json:"fixed"`
	Actions []string `json:"actions"`
}

// CheckDataConsistency inspects the stores and cache without changing them.
// Checks run in order: no data anywhere, a missing or invalid persisted
// record next to header data, an unsupported header value, a locale
// mismatch between the stores, and a fresh cache entry that disagrees with
// the persisted record.
func (m *Manager) CheckDataConsistency(ctx context.Context) (report ConsistencyReport) {
	defer func() {
		if r := recover(); r != nil {
			msg := panicMessage(r)
			m.config.logger.Error("Recovered from panic", "op", "check_data_consistency", "client_id", m.config.clientID, "error", msg)
			report = ConsistencyReport{Issues: []string{"Error checking consistency: " + msg}}
		}
	}()

	issues := []string{}
	stored := m.loadStored(ctx)
	headerValue, hasHeader := m.headerLocale(ctx)

	if !stored.present && !hasHeader {
		issues = append(issues, "No preference data found")
	} else if !stored.valid() {
		reasons := stored.validation.Errors
		if !stored.present {
			reasons = []string{"record is missing"}
		}
		issues = append(issues, "Invalid persistent store data: "+strings.Join(reasons, "; "))
	}

	headerCode := m.config.locales.Canonical(headerValue)
	if hasHeader && headerCode == "" {
		issues = append(issues, fmt.Sprintf("Header store locale %q is not supported", headerValue))
	}

	if stored.valid() && headerCode != "" && headerCode != stored.record.Locale {
		issues = append(issues, fmt.Sprintf("Locale mismatch: persistent store has %q, header store has %q", stored.record.Locale, headerValue))
	}

	if cached, hit := m.config.cache.Peek(m.config.preferenceKey); hit {
		switch {
		case !stored.valid():
			issues = append(issues, fmt.Sprintf("Cache data %q has no valid persisted record behind it", cached.Locale))
		case cached.Locale != stored.record.Locale:
			issues = append(issues, fmt.Sprintf("Cache data %q does not match persistent store %q", cached.Locale, stored.record.Locale))
		}
	}

	return ConsistencyReport{IsConsistent: len(issues) == 0, Issues: issues}
}

// FixDataInconsistency applies the smallest correction for the problems
// CheckDataConsistency reports. The first matching rule wins:
//
//  1. nothing to fix;
//  2. a valid persisted record is authoritative: clear the cache, then
//     re-sync the header store if it disagrees;
//  3. otherwise a usable header locale is rebuilt into a persisted record;
//  4. otherwise a default record is created.
func (m *Manager) FixDataInconsistency(ctx context.Context) (res Result[RepairData]) {
	defer m.recoverResult("fix_data_inconsistency", &res)

	report := m.CheckDataConsistency(ctx)
	if report.IsConsistent {
		return ok(RepairData{Fixed: false, Actions: []string{"No issues found"}})
	}

	actions := []string{}
	stored := m.loadStored(ctx)

	if stored.valid() {
		m.config.cache.ClearCache()
		actions = append(actions, "Cleared cache")

		if code, found := m.usableHeaderLocale(ctx); !found || code != stored.record.Locale {
			data, err := m.syncPreferenceData(ctx)
			if err != nil {
				return fail[RepairData](err)
			}
			if data.Synced {
				actions = append(actions, fmt.Sprintf("Synchronized header store to %q", data.Locale))
			}
		}
	} else if code, found := m.usableHeaderLocale(ctx); found {
		rec, err := m.saveUserPreference(ctx, m.recoveredUpdate(code))
		if err != nil {
			return fail[RepairData](err)
		}
		actions = append(actions, fmt.Sprintf("Recovered from header store: %q", rec.Locale))
	} else {
		rec, err := m.saveUserPreference(ctx, m.defaultUpdate())
		if err != nil {
			return fail[RepairData](err)
		}
		actions = append(actions, fmt.Sprintf("Created default preference: %q", rec.Locale))
	}

	m.config.logger.Info("Repaired preference data", "client_id", m.config.clientID, "issues", report.Issues, "actions", actions)
	return ok(RepairData{Fixed: true, Actions: actions})
}
