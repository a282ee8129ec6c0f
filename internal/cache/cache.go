// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides an in-memory key/value store with a per-entry
// time to live. Expired entries are evicted lazily on access; there is no
// background sweeper.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Entry is a cached value together with its freshness window.
type Entry struct {
	Key        string
	Value      any
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.InsertedAt.Add(e.TTL))
}

// Stats counts cache outcomes since creation.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// TTLCache stores entries keyed by string. Safe for concurrent use.
type TTLCache struct {
	mu    sync.Mutex
	store *gocache.Cache
	now   func() time.Time
	stats Stats
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		// Expiry is tracked on Entry so the injected clock governs it;
		// the underlying store never expires or sweeps on its own.
		store: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key. It misses when the key is absent
// or its entry has expired; an expired entry is removed.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.store.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := raw.(*Entry)
	if e.Expired(c.now()) {
		c.store.Delete(key)
		c.stats.Evictions++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.Value, true
}

// Set stores value under key for ttl, replacing any existing entry.
// A non-positive ttl stores nothing.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(key, &Entry{
		Key:        key,
		Value:      value,
		InsertedAt: c.now(),
		TTL:        ttl,
	}, gocache.NoExpiration)
}

// Delete removes key if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(key)
}

// Len returns the number of stored entries, including expired ones that
// have not been accessed since they went stale.
func (c *TTLCache) Len() int {
	return c.store.ItemCount()
}

// Clear removes every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
}

// Stats returns a snapshot of the hit and miss counters.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.store.ItemCount()
	return s
}
