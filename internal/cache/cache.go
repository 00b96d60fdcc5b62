// Package cache provides an in-memory TTL cache with per-key load deduplication.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medterms/internal/domain"
	"medterms/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFreshTTL  = 10 * time.Minute
	DefaultRetention = 30 * time.Minute

	refreshTimeout = 30 * time.Second
)

// StalePolicy decides what Get does with an entry past its fresh TTL but still retained
type StalePolicy string

const (
	// PolicyRefetch reloads and waits for the new value
	PolicyRefetch StalePolicy = "refetch"
	// PolicyStaleWhileRevalidate returns the stale value and reloads in the background
	PolicyStaleWhileRevalidate StalePolicy = "stale"
)

// ParseStalePolicy maps a config string to a policy, defaulting to refetch
func ParseStalePolicy(s string) StalePolicy {
	if StalePolicy(s) == PolicyStaleWhileRevalidate {
		return PolicyStaleWhileRevalidate
	}
	return PolicyRefetch
}

// Clock abstracts time for tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	Name      string
	FreshTTL  time.Duration
	Retention time.Duration
	Policy    StalePolicy
	Clock     Clock
	Logger    *zap.Logger
}

// Loader fetches the value for a key on a miss
type Loader[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache stores loaded values by key. Concurrent misses on the same key
// share a single loader call.
type Cache[T any] struct {
	name      string
	freshTTL  time.Duration
	retention time.Duration
	policy    StalePolicy
	clock     Clock
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]entry[T]
	// gens is bumped on Invalidate so loads started earlier don't repopulate the key
	gens  map[string]uint64
	group singleflight.Group
}

// New creates a cache
func New[T any](opts Options) *Cache[T] {
	c := &Cache[T]{
		name:      opts.Name,
		freshTTL:  opts.FreshTTL,
		retention: opts.Retention,
		policy:    opts.Policy,
		clock:     opts.Clock,
		logger:    opts.Logger,
		entries:   make(map[string]entry[T]),
		gens:      make(map[string]uint64),
	}
	if c.name == "" {
		c.name = "default"
	}
	if c.freshTTL <= 0 {
		c.freshTTL = DefaultFreshTTL
	}
	if c.retention < c.freshTTL {
		c.retention = DefaultRetention
		if c.retention < c.freshTTL {
			c.retention = c.freshTTL
		}
	}
	if c.policy == "" {
		c.policy = PolicyRefetch
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Get returns the cached value for key, calling load when the entry is
// missing or no longer fresh. A failed load is not cached.
func (c *Cache[T]) Get(ctx context.Context, key string, load Loader[T]) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		age := c.clock.Now().Sub(e.fetchedAt)
		switch {
		case age < c.freshTTL:
			metrics.CacheHits.WithLabelValues(c.name, "fresh").Inc()
			return e.value, nil
		case age < c.retention && c.policy == PolicyStaleWhileRevalidate:
			metrics.CacheHits.WithLabelValues(c.name, "stale").Inc()
			c.refresh(key, load)
			return e.value, nil
		}
	}

	metrics.CacheMisses.WithLabelValues(c.name).Inc()

	v, err, _ := c.group.Do(key, c.loadFunc(ctx, key, load))
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := v.(T)
	return value, nil
}

// refresh reloads key in the background, joining any load already in flight
func (c *Cache[T]) refresh(key string, load Loader[T]) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err, _ := c.group.Do(key, c.loadFunc(ctx, key, load)); err != nil {
			c.logger.Warn("Background cache refresh failed",
				zap.String("cache", c.name),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}()
}

func (c *Cache[T]) loadFunc(ctx context.Context, key string, load Loader[T]) func() (any, error) {
	return func() (any, error) {
		c.mu.Lock()
		gen := c.gens[key]
		c.mu.Unlock()

		value, err := load(ctx)
		if err != nil {
			metrics.CacheLoads.WithLabelValues(c.name, metrics.ResultError).Inc()
			c.logger.Warn("Cache load failed",
				zap.String("cache", c.name),
				zap.String("key", key),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrCacheLoad, key, err)
		}
		metrics.CacheLoads.WithLabelValues(c.name, metrics.ResultOK).Inc()

		c.mu.Lock()
		if c.gens[key] == gen {
			c.entries[key] = entry[T]{value: value, fetchedAt: c.clock.Now()}
		}
		c.mu.Unlock()

		return value, nil
	}
}

// Invalidate drops the entry so the next Get reloads it
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()

	c.group.Forget(key)
}

// Prune removes entries older than the retention window and returns how many were dropped
func (c *Cache[T]) Prune() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.retention {
			delete(c.entries, key)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of stored entries, fresh or not
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Name returns the cache name used in logs and metrics
func (c *Cache[T]) Name() string {
	return c.name
}
