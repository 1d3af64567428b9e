// Package locale holds the set of locales an application serves and
// negotiates a client's locale from an Accept-Language header.
package locale

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when a Set is built without an explicit default.
const DefaultLocale = "en"

var (
	// ErrEmptySet is returned when a Set is built without any locales.
	ErrEmptySet = errors.New("locale set must contain at least one locale")
	// ErrInvalidCode is returned for a locale code that is not a valid BCP 47 tag.
	ErrInvalidCode = errors.New("invalid locale code")
)

// Set is an immutable, ordered collection of supported locale codes with a
// default. The default is always a member of the set.
type Set struct {
	codes   []string
	tags    []language.Tag
	index   map[string]int
	matcher language.Matcher
}

// DefaultSet returns the set served out of the box: English (default) and Chinese.
func DefaultSet() *Set {
	s, err := NewSet(DefaultLocale, "en", "zh")
	if err != nil {
		panic(err)
	}
	return s
}

// NewSet builds a Set from def and codes. def is moved to the front so the
// matcher falls back to it. Duplicate codes are ignored.
func NewSet(def string, codes ...string) (*Set, error) {
	def = normalize(def)
	if def == "" && len(codes) == 0 {
		return nil, ErrEmptySet
	}
	if def == "" {
		def = normalize(codes[0])
	}

	s := &Set{index: make(map[string]int)}
	for _, code := range append([]string{def}, codes...) {
		code = normalize(code)
		if code == "" {
			continue
		}
		if _, dup := s.index[code]; dup {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCode, code, err)
		}
		s.index[code] = len(s.codes)
		s.codes = append(s.codes, code)
		s.tags = append(s.tags, tag)
	}
	s.matcher = language.NewMatcher(s.tags)
	return s, nil
}

// Default returns the fallback locale code.
func (s *Set) Default() string {
	return s.codes[0]
}

// Codes returns a copy of the supported codes, default first.
func (s *Set) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Supported reports whether code is one of the set's locales. The
// comparison is case-insensitive and treats "_" like "-".
func (s *Set) Supported(code string) bool {
	_, ok := s.index[normalize(code)]
	return ok
}

// Canonical returns the set's spelling of code, or "" when unsupported.
func (s *Set) Canonical(code string) string {
	if i, ok := s.index[normalize(code)]; ok {
		return s.codes[i]
	}
	return ""
}

// Negotiate picks the best supported locale for an Accept-Language header
// value and returns it with a confidence score in [0,1]. An empty or
// unparsable header, or one with no usable match, yields the default with
// confidence 0.
func (s *Set) Negotiate(acceptLanguage string) (string, float64) {
	if strings.TrimSpace(acceptLanguage) == "" {
		return s.Default(), 0
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return s.Default(), 0
	}

	_, idx, conf := s.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(s.codes) {
		return s.Default(), 0
	}
	return s.codes[idx], confidenceScore(conf)
}

func confidenceScore(c language.Confidence) float64 {
	switch c {
	case language.Exact:
		return 1.0
	case language.High:
		return 0.8
	case language.Low:
		return 0.5
	default:
		return 0
	}
}

func normalize(code string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "_", "-")
}
