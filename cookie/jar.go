// Package cookie provides cookie-backed header stores. Values live in the
// browser's cookie string, travel with every request and share a small
// byte budget.
package cookie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/CreativeUnicorns/localeprefs"
)

var (
	_ localeprefs.HeaderStore = (*Jar)(nil)
	_ localeprefs.HeaderStore = (*MemoryJar)(nil)
)

// DefaultMaxAge is how long a written cookie lives in the browser.
const DefaultMaxAge = 365 * 24 * time.Hour

// Options controls the attributes of cookies written by a Jar.
type Options struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
	// Budget caps the visible cookie string in bytes. Zero means
	// localeprefs.DefaultHeaderBudget.
	Budget int64
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.Budget <= 0 {
		o.Budget = localeprefs.DefaultHeaderBudget
	}
	return o
}

// Cookie builds a cookie named name carrying value with the configured
// attributes. value is used as given.
func (o Options) Cookie(name, value string) *http.Cookie {
	o = o.withDefaults()
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   int(o.MaxAge / time.Second),
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// Jar is a HeaderStore over one HTTP exchange. It reads the request's
// cookies and writes Set-Cookie headers on the response. Writes are visible
// to later reads through the same Jar.
type Jar struct {
	mu      sync.Mutex
	req     *http.Request
	w       http.ResponseWriter
	opts    Options
	pending map[string]*http.Cookie
}

// NewJar wraps a request/response pair. Either may be nil: without a request
// only pending writes are visible, and without a writer the Jar is
// unavailable for writes.
func NewJar(w http.ResponseWriter, r *http.Request, opts Options) *Jar {
	return &Jar{
		req:     r,
		w:       w,
		opts:    opts.withDefaults(),
		pending: make(map[string]*http.Cookie),
	}
}

// Get returns the decoded value of the named cookie.
func (j *Jar) Get(_ context.Context, name string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	raw, found := j.lookup(name)
	if !found {
		return "", localeprefs.ErrNotFound
	}
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: cookie %q: %v", localeprefs.ErrSerialization, name, err)
	}
	return value, nil
}

// Set writes the named cookie, failing with ErrQuotaExceeded when the
// visible cookie string would exceed the budget.
func (j *Jar) Set(_ context.Context, name, value string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return localeprefs.ErrStorageUnavailable
	}

	encoded := url.QueryEscape(value)
	visible := j.visible()
	visible[name] = encoded
	if projected := cookieStringSize(visible); projected > j.opts.Budget {
		return fmt.Errorf("%w: cookies would use %d of %d bytes", localeprefs.ErrQuotaExceeded, projected, j.opts.Budget)
	}

	c := j.opts.Cookie(name, encoded)
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %v", localeprefs.ErrInvalidInput, err)
	}
	http.SetCookie(j.w, c)
	j.pending[name] = c
	return nil
}

// Remove expires the named cookie.
func (j *Jar) Remove(_ context.Context, name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return localeprefs.ErrStorageUnavailable
	}
	c := &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   j.opts.Path,
		Domain: j.opts.Domain,
		MaxAge: -1,
	}
	http.SetCookie(j.w, c)
	j.pending[name] = c
	return nil
}

// Usage returns the byte size of the cookie string the browser would send
// next, as "name=value" pairs joined by "; ".
func (j *Jar) Usage(context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return cookieStringSize(j.visible()), nil
}

// Available reports whether the Jar can write cookies.
func (j *Jar) Available(context.Context) bool {
	return j.w != nil
}

// Budget returns the cookie byte budget.
func (j *Jar) Budget() int64 {
	return j.opts.Budget
}

func (j *Jar) lookup(name string) (string, bool) {
	if c, written := j.pending[name]; written {
		if c.MaxAge < 0 {
			return "", false
		}
		return c.Value, true
	}
	if j.req == nil {
		return "", false
	}
	c, err := j.req.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// visible returns the cookies the browser would send after this exchange.
func (j *Jar) visible() map[string]string {
	visible := make(map[string]string)
	if j.req != nil {
		for _, c := range j.req.Cookies() {
			visible[c.Name] = c.Value
		}
	}
	// Cookies set on the response by other handlers, like the client ID.
	if j.w != nil {
		for _, line := range j.w.Header().Values("Set-Cookie") {
			c, err := http.ParseSetCookie(line)
			if err != nil {
				continue
			}
			if c.MaxAge < 0 {
				delete(visible, c.Name)
				continue
			}
			visible[c.Name] = c.Value
		}
	}
	for name, c := range j.pending {
		if c.MaxAge < 0 {
			delete(visible, name)
			continue
		}
		visible[name] = c.Value
	}
	return visible
}

// pairSize is the cost of one cookie in the Cookie header, separator included.
func pairSize(name, value string) int64 {
	return int64(len(name) + 1 + len(value) + len("; "))
}

func cookieStringSize(cookies map[string]string) int64 {
	if len(cookies) == 0 {
		return 0
	}
	var n int64
	for name, value := range cookies {
		n += pairSize(name, value)
	}
	// The last pair has no trailing separator.
	return n - int64(len("; "))
}
