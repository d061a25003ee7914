// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trust

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

// DefaultTrajectoryTTL is how long a cached trust series stays fresh.
// Trajectories move slowly; a short TTL keeps repeated walks for the same
// pair from hammering the time-series backend.
const DefaultTrajectoryTTL = 5 * time.Minute

// Cache is the storage strategy behind CachedTrajectory. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]float64, bool)
	Set(key string, series []float64)
}

// CachedTrajectory is a read-through cache over a walk.TrajectorySource.
// Concurrent misses for the same (user, character) pair collapse into a
// single backend query. Errors are never cached.
type CachedTrajectory struct {
	source walk.TrajectorySource
	cache  Cache
	flight singleflight.Group

	hits   int64
	misses int64
}

// CacheOption configures a CachedTrajectory.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	ttl   time.Duration
	cache Cache
	now   func() time.Time
}

// WithTTL sets the freshness window for the built-in cache.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCache swaps in an external cache implementation. WithTTL is ignored
// when set; the external cache owns its own expiry.
func WithCache(cache Cache) CacheOption {
	return func(c *cacheConfig) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithClock overrides the time source of the built-in cache.
func WithClock(fn func() time.Time) CacheOption {
	return func(c *cacheConfig) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCachedTrajectory wraps source with the configured cache.
func NewCachedTrajectory(source walk.TrajectorySource, opts ...CacheOption) *CachedTrajectory {
	cfg := cacheConfig{ttl: DefaultTrajectoryTTL, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache = newMemoryCache(cfg.ttl, cfg.now)
	}
	return &CachedTrajectory{source: source, cache: cfg.cache}
}

// GetTrustTrajectory implements walk.TrajectorySource. Empty series are
// cached like any other answer so a pair with no trust history does not
// trigger a backend query per walk.
func (c *CachedTrajectory) GetTrustTrajectory(ctx context.Context, userID, character string) ([]float64, error) {
	key := userID + "|" + character

	if series, ok := c.cache.Get(key); ok {
		atomic.AddInt64(&c.hits, 1)
		return series, nil
	}
	atomic.AddInt64(&c.misses, 1)

	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		series, err := c.source.GetTrustTrajectory(ctx, userID, character)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float64), nil
}

// Stats reports cache hit and miss counts.
func (c *CachedTrajectory) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// memoryCache is the built-in TTL map cache.
type memoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	series   []float64
	storedAt time.Time
}

func newMemoryCache(ttl time.Duration, now func() time.Time) *memoryCache {
	return &memoryCache{ttl: ttl, now: now, entries: make(map[string]memoryCacheEntry)}
}

func (m *memoryCache) Get(key string) ([]float64, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().Sub(entry.storedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return entry.series, true
}

func (m *memoryCache) Set(key string, series []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryCacheEntry{series: series, storedAt: m.now()}
}
