// Package cache holds one localeprefs.CacheManager per client for servers
// that build a Manager per request.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/CreativeUnicorns/localeprefs"
)

// DefaultIdleTTL is how long a client's cache survives without requests.
const DefaultIdleTTL = 30 * time.Minute

// Registry maps client IDs to their CacheManager. A client's entry expires
// after it has gone idle; every Get extends it.
type Registry struct {
	sessions *ttlcache.Cache[string, *localeprefs.CacheManager]
	opts     []localeprefs.CacheOption
}

// NewRegistry returns a Registry whose entries expire after idle (or
// DefaultIdleTTL when idle <= 0). opts configure every CacheManager it
// creates. Call Start to run the background eviction loop.
func NewRegistry(idle time.Duration, opts ...localeprefs.CacheOption) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	return &Registry{
		sessions: ttlcache.New[string, *localeprefs.CacheManager](
			ttlcache.WithTTL[string, *localeprefs.CacheManager](idle),
		),
		opts: opts,
	}
}

// Get returns the client's CacheManager, creating it on first use. Every
// call restarts the client's idle window.
func (r *Registry) Get(clientID string) *localeprefs.CacheManager {
	item, _ := r.sessions.GetOrSet(clientID, localeprefs.NewCacheManager(r.opts...))
	return item.Value()
}

// Lookup returns the client's CacheManager without creating one.
func (r *Registry) Lookup(clientID string) (*localeprefs.CacheManager, bool) {
	item := r.sessions.Get(clientID)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Forget drops the client's CacheManager.
func (r *Registry) Forget(clientID string) {
	r.sessions.Delete(clientID)
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.sessions.DeleteExpired()
	return r.sessions.Len()
}

// OnEvict registers fn to be called with the client ID whenever an idle
// client is dropped. It returns a function that unregisters fn.
func (r *Registry) OnEvict(fn func(clientID string)) func() {
	return r.sessions.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *localeprefs.CacheManager]) {
		if reason == ttlcache.EvictionReasonExpired {
			fn(item.Key())
		}
	})
}

// Start runs the eviction loop until Stop is called. It blocks, so run it
// in its own goroutine.
func (r *Registry) Start() {
	r.sessions.Start()
}

// Stop ends the eviction loop.
func (r *Registry) Stop() {
	r.sessions.Stop()
}
