/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/lrustore"
	"github.com/loadkit/go-loadkit/service"
)

// DefaultCleanupInterval is a default interval between background cleanups of expired entries.
const DefaultCleanupInterval = time.Minute

// ComputeFunc produces the value to be cached for a key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache memoizes results of expensive computations keyed by a fingerprint of their inputs.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	store *lrustore.Store[K, V]
	group singleFlightGroup[K, V]
	ttl   time.Duration

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// TTL is the time after which a cached entry expires. Zero means no expiration.
	TTL time.Duration

	// StoreMetricsCollector is used to collect statistics about the underlying store
	// (entries amount, evictions). It can be nil, in this case, store metrics will be disabled.
	StoreMetricsCollector lrustore.MetricsCollector
}

// New creates a new Cache with the provided maximum number of entries, TTL, and metrics collector.
// Metrics collector can be nil, in this case, metrics will be disabled.
func New[K comparable, V any](maxEntries int, ttl time.Duration, metricsCollector MetricsCollector) (*Cache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options{TTL: ttl})
}

// NewWithOpts creates a new Cache with the provided maximum number of entries,
// metrics collector, and options.
func NewWithOpts[K comparable, V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*Cache[K, V], error) {
	if opts.TTL < 0 {
		return nil, fmt.Errorf("ttl must be greater or equal to 0 (no expiration)")
	}
	store, err := lrustore.NewWithOpts[K, V](maxEntries, opts.StoreMetricsCollector, lrustore.Options{DefaultTTL: opts.TTL})
	if err != nil {
		return nil, fmt.Errorf("new store for cache entries: %w", err)
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &Cache[K, V]{
		store:            store,
		ttl:              opts.TTL,
		metricsCollector: metricsCollector,
	}, nil
}

// GetOrCompute returns the cached value for the key, computing it with compute on a miss.
//
// At most one computation per key is in flight at a time: concurrent callers for the
// same key wait for the first one to finish and receive its value or its error.
// A computation error is surfaced to all waiting callers and is not cached, so the
// next caller recomputes. A panic in compute is propagated to the caller that invoked
// it and is surfaced as *PanicError to the waiting callers.
func (c *Cache[K, V]) GetOrCompute(ctx context.Context, key K, compute ComputeFunc[V]) (V, error) {
	if value, ok := c.store.Get(key); ok {
		c.metricsCollector.IncHits()
		return value, nil
	}
	c.metricsCollector.IncMisses()

	return c.group.Do(key, func() (V, error) {
		// The value may have been computed and stored while this caller was waiting
		// for the group lock.
		if value, ok := c.store.Get(key); ok {
			return value, nil
		}

		c.metricsCollector.IncComputations()
		value, err := compute(ctx)
		if err != nil {
			c.metricsCollector.IncComputeFailures()
			return value, err
		}
		c.store.Set(key, value)
		return value, nil
	})
}

// Get returns the cached value for the key without computing anything.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if value, ok = c.store.Get(key); ok {
		c.metricsCollector.IncHits()
		return value, true
	}
	c.metricsCollector.IncMisses()
	return value, false
}

// Invalidate removes the entry stored under key and reports whether it was present.
// An in-flight computation for the key is not affected.
func (c *Cache[K, V]) Invalidate(key K) bool {
	return c.store.Delete(key)
}

// Flush removes all cached entries.
func (c *Cache[K, V]) Flush() {
	c.store.Flush()
}

// Len returns the number of cached entries, including expired ones that have not been cleaned up yet.
func (c *Cache[K, V]) Len() int {
	return c.store.Len()
}

// RunPeriodicCleanup removes expired entries every cleanupInterval until ctx is canceled.
// It's supposed to be run in a separate goroutine.
func (c *Cache[K, V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	c.store.RunPeriodicCleanup(ctx, cleanupInterval)
}

// NewCleanupWorker returns a service.Worker that removes expired entries every
// cleanupInterval. It can be managed as a service unit
// (e.g., service.NewWorkerUnit(cache.NewCleanupWorker(time.Minute))).
func (c *Cache[K, V]) NewCleanupWorker(cleanupInterval time.Duration) service.Worker {
	if cleanupInterval == 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return service.WorkerFunc(func(ctx context.Context) error {
		c.RunPeriodicCleanup(ctx, cleanupInterval)
		return nil
	})
}
