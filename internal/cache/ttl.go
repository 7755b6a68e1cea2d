// Package cache provides the in-memory TTL cache owned by each search source.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// RepositoryTTL is the default lifetime of catalog and Chocolatey search pages.
	RepositoryTTL = 5 * time.Minute

	// WebsiteTTL is the default lifetime of official-site lookups.
	WebsiteTTL = 10 * time.Minute
)

// TTL is a goroutine-safe key/value store whose entries expire a fixed duration after
// they were stored. Stale entries are evicted lazily by Get. There is no capacity bound.
type TTL[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]Entry[V]
	stats   Stats
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger attaches a logger for debug-level cache events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewTTL creates a cache whose entries live for ttl.
func NewTTL[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &TTL[V]{
		name:    name,
		ttl:     ttl,
		now:     o.now,
		logger:  o.logger,
		entries: make(map[string]Entry[V]),
	}
}

// Name returns the cache name used in logs and metrics.
func (c *TTL[V]) Name() string { return c.name }

// TTL returns the fixed lifetime of entries.
func (c *TTL[V]) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key. A stale entry is removed and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		c.stats.MissCount++
		return zero, false
	}

	if entry.expired(c.now(), c.ttl) {
		delete(c.entries, key)
		c.stats.EvictedCount++
		c.stats.MissCount++
		c.logger.Debug("Cache entry expired",
			zap.String("cache", c.name),
			zap.String("key", key))
		return zero, false
	}

	c.stats.HitCount++
	return entry.Value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{Value: value, StoredAt: c.now()}
}

// Clear drops every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[V])
	c.stats.ClearCount++
	c.logger.Debug("Cache cleared", zap.String("cache", c.name))
}

// Len returns the number of stored entries, including stale ones not yet evicted.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *TTL[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.TotalEntries = len(c.entries)
	return s
}

// Clearer is implemented by anything holding caches that can be reset.
type Clearer interface {
	ClearCache()
}

// StatsProvider exposes cache statistics for metrics collection.
type StatsProvider interface {
	Name() string
	GetStats() Stats
}
