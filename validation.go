// validation.go
package localeprefs

import (
	"fmt"
	"strings"
	"time"

	"github.com/CreativeUnicorns/localeprefs/locale"
)

// futureSkew is how far ahead of the clock a timestamp may be before it is
// reported as a warning.
const futureSkew = time.Minute

// ValidationResult is the outcome of checking a PreferenceRecord. Errors make
// the record unusable; Warnings do not.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Err returns nil for a valid result, otherwise an ErrInvalidRecord wrapping
// the joined error messages.
func (v ValidationResult) Err() error {
	if v.IsValid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(v.Errors, "; "))
}

// ValidateRecord checks rec against the allowed locales. now is used to flag
// timestamps from the future.
func ValidateRecord(rec *PreferenceRecord, locales *locale.Set, now time.Time) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if rec == nil {
		res.Errors = append(res.Errors, "record is missing")
		return res
	}

	switch {
	case strings.TrimSpace(rec.Locale) == "":
		res.Errors = append(res.Errors, "locale is required")
	case !locales.Supported(rec.Locale):
		res.Errors = append(res.Errors, fmt.Sprintf("locale %q is not supported", rec.Locale))
	}

	if rec.Source == "" {
		res.Warnings = append(res.Warnings, "source is missing")
	} else if !knownSources[rec.Source] {
		res.Warnings = append(res.Warnings, fmt.Sprintf("source %q is not recognised", rec.Source))
	}

	if rec.Confidence < 0 || rec.Confidence > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("confidence %.2f is outside [0,1]", rec.Confidence))
	}

	if rec.Timestamp <= 0 {
		res.Warnings = append(res.Warnings, "timestamp is missing")
	} else if rec.Time().After(now.Add(futureSkew)) {
		res.Warnings = append(res.Warnings, "timestamp is in the future")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
