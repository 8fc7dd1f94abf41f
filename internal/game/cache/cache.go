// Package cache provides a sharded, time-windowed cache whose entries are
// reused only while their situational fingerprint still matches.
package cache

import (
	"hash/maphash"
	"sync"
	"time"
)

const (
	// DefaultShards is the shard count used when none is configured.
	DefaultShards = 16
	// DefaultSweepThreshold is the size past which a write triggers a sweep.
	DefaultSweepThreshold = 100
)

type entry[F comparable, V any] struct {
	value       V
	fingerprint F
	created     time.Time
}

type shard[K comparable, F comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[F, V]
}

// Cache maps a key to the most recent value stored for it along with the
// fingerprint of the situation that produced it.
//
// Invariant: Get never returns an entry whose age is >= the window or whose
// fingerprint differs from the one supplied.
type Cache[K comparable, F comparable, V any] struct {
	window    time.Duration
	threshold int
	now       func() time.Time
	seed      maphash.Seed
	shards    []*shard[K, F, V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	shards    int
	threshold int
	now       func() time.Time
}

// WithShards sets the number of lock shards. Values < 1 are ignored.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithSweepThreshold sets the size past which writes sweep stale entries.
// Values < 1 are ignored.
func WithSweepThreshold(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.threshold = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a Cache whose entries stay fresh for window.
//
// Precondition: window > 0.
func New[K comparable, F comparable, V any](window time.Duration, opts ...Option) *Cache[K, F, V] {
	o := options{shards: DefaultShards, threshold: DefaultSweepThreshold, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache[K, F, V]{
		window:    window,
		threshold: o.threshold,
		now:       o.now,
		seed:      maphash.MakeSeed(),
		shards:    make([]*shard[K, F, V], o.shards),
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, F, V]{entries: make(map[K]entry[F, V])}
	}
	return c
}

// Window returns the freshness window.
func (c *Cache[K, F, V]) Window() time.Duration { return c.window }

func (c *Cache[K, F, V]) shardFor(key K) *shard[K, F, V] {
	h := maphash.Comparable(c.seed, key)
	return c.shards[h%uint64(len(c.shards))]
}

// Get returns the value for key if it is younger than the window and was
// stored with fingerprint fp.
func (c *Cache[K, F, V]) Get(key K, fp F) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.fingerprint != fp || c.now().Sub(e.created) >= c.window {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value for key with a fresh timestamp, replacing any previous
// entry. When the cache holds more than the sweep threshold, stale entries
// are removed.
func (c *Cache[K, F, V]) Put(key K, fp F, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry[F, V]{value: value, fingerprint: fp, created: c.now()}
	s.mu.Unlock()
	if c.Len() > c.threshold {
		c.Sweep()
	}
}

// Delete removes key.
func (c *Cache[K, F, V]) Delete(key K) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[K, F, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]entry[F, V])
		s.mu.Unlock()
	}
}

// Sweep removes entries whose age is >= the window. Shards are locked one at
// a time, so readers of other shards are never blocked.
//
// Postcondition: Returns the number of entries removed.
func (c *Cache[K, F, V]) Sweep() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if now.Sub(e.created) >= c.window {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of entries, fresh or stale.
func (c *Cache[K, F, V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
