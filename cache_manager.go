package localeprefs

import (
	"sort"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached record is served before it must be
// re-read from the stores.
const DefaultCacheTTL = 5 * time.Minute

// CacheEntry is a cached record and the time it was inserted.
type CacheEntry struct {
	Key        string
	Value      PreferenceRecord
	InsertedAt time.Time
}

// EntryStatus describes one cached key.
type EntryStatus struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age"`
	IsExpired bool          `json:"isExpired"`
}

// CacheStatus is a diagnostic snapshot of a CacheManager. Age and IsExpired
// describe the most recently inserted entry; Entries covers every key,
// including expired entries that have not been evicted yet.
type CacheStatus struct {
	Size      int           `json:"size"`
	Age       time.Duration `json:"age"`
	IsExpired bool          `json:"isExpired"`
	Keys      []string      `json:"keys"`
	Entries   []EntryStatus `json:"entries"`
	TTL       time.Duration `json:"ttl"`
}

// CacheOption configures a CacheManager.
type CacheOption func(*CacheManager)

// WithTTL overrides DefaultCacheTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CacheManager) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheClock replaces time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CacheManager) {
		if now != nil {
			c.now = now
		}
	}
}

// CacheManager is a time-bounded cache of PreferenceRecords keyed by
// storage key. It is the only mutator of its entries. Expired entries are
// evicted lazily on read.
type CacheManager struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]CacheEntry
}

// NewCacheManager returns an empty CacheManager.
func NewCacheManager(opts ...CacheOption) *CacheManager {
	c := &CacheManager{
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]CacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *CacheManager) TTL() time.Duration {
	return c.ttl
}

// GetCachedPreference returns a copy of the record cached under key. An
// entry whose age has reached the TTL is removed and reported as a miss.
func (c *CacheManager) GetCachedPreference(key string) (*PreferenceRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		return nil, false
	}

	rec := entry.Value.clone()
	return &rec, true
}

// Peek is GetCachedPreference without eviction, for read-only diagnostics.
func (c *CacheManager) Peek(key string) (*PreferenceRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || c.expired(entry) {
		return nil, false
	}
	rec := entry.Value.clone()
	return &rec, true
}

// UpdateCache inserts or overwrites the entry for key, stamping it with the
// current time.
func (c *CacheManager) UpdateCache(key string, rec PreferenceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Key:        key,
		Value:      rec.clone(),
		InsertedAt: c.now(),
	}
}

// ClearCache removes the given keys, or every entry when none are given.
func (c *CacheManager) ClearCache(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		c.entries = make(map[string]CacheEntry)
		return
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// GetCacheStatus reports the cache's size, keys and ages.
func (c *CacheManager) GetCacheStatus() CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	status := CacheStatus{
		Size:    len(c.entries),
		Keys:    make([]string, 0, len(c.entries)),
		Entries: make([]EntryStatus, 0, len(c.entries)),
		TTL:     c.ttl,
	}

	var newest *CacheEntry
	for key := range c.entries {
		status.Keys = append(status.Keys, key)
	}
	sort.Strings(status.Keys)

	for _, key := range status.Keys {
		entry := c.entries[key]
		status.Entries = append(status.Entries, EntryStatus{
			Key:       key,
			Age:       now.Sub(entry.InsertedAt),
			IsExpired: c.expired(entry),
		})
		if newest == nil || entry.InsertedAt.After(newest.InsertedAt) {
			e := entry
			newest = &e
		}
	}

	if newest != nil {
		status.Age = now.Sub(newest.InsertedAt)
		status.IsExpired = c.expired(*newest)
	}
	return status
}

func (c *CacheManager) expired(entry CacheEntry) bool {
	return c.now().Sub(entry.InsertedAt) >= c.ttl
}
