/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package lrustore

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// Store is a bounded key-value store with LRU eviction and optional per-entry TTL.
// Expired entries are treated as absent and are removed lazily on access,
// by CleanupExpired, or by RunPeriodicCleanup.
type Store[K comparable, V any] struct {
	maxEntries int
	defaultTTL time.Duration

	mu      sync.RWMutex
	lruList *list.List
	entries map[K]*list.Element

	metricsCollector MetricsCollector
}

// Options represents options for the store.
type Options struct {
	// DefaultTTL is the TTL applied by Set and GetOrSet. Zero means no expiration.
	DefaultTTL time.Duration
}

// New creates a new Store bounded by maxEntries.
// Metrics collector may be nil, in this case metrics will be disabled.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*Store[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options{})
}

// NewWithOpts creates a new Store bounded by maxEntries with the provided options.
func NewWithOpts[K comparable, V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*Store[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &Store[K, V]{
		maxEntries:       maxEntries,
		defaultTTL:       opts.DefaultTTL,
		lruList:          list.New(),
		entries:          make(map[K]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns the value stored under key. The second result reports whether
// a non-expired entry was found.
func (s *Store[K, V]) Get(key K) (value V, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

// Set stores the value under key with the default TTL,
// evicting the least recently used entry if the store is full.
func (s *Store[K, V]) Set(key K, value V) {
	s.SetWithTTL(key, value, s.defaultTTL)
}

// SetWithTTL stores the value under key with an explicit TTL,
// evicting the least recently used entry if the store is full.
func (s *Store[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.lruList.MoveToFront(elem)
		elem.Value = &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
		return
	}
	s.add(key, value, expiresAt)
}

// GetOrSet returns the value stored under key. If no live entry exists,
// it stores the value produced by valueProvider with the default TTL.
// The second result reports whether the value was already present.
func (s *Store[K, V]) GetOrSet(key K, valueProvider func() V) (value V, exists bool) {
	return s.GetOrSetWithTTL(key, valueProvider, s.defaultTTL)
}

// GetOrSetWithTTL returns the value stored under key. If no live entry exists,
// it stores the value produced by valueProvider with an explicit TTL.
// valueProvider is invoked under the store lock, so it must be cheap and must not
// call back into the store.
func (s *Store[K, V]) GetOrSetWithTTL(key K, valueProvider func() V, ttl time.Duration) (value V, exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, exists = s.get(key); exists {
		return value, true
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	value = valueProvider()
	s.add(key, value, expiresAt)
	return value, false
}

// Delete removes the entry stored under key and reports whether it was present.
func (s *Store[K, V]) Delete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lruList.Remove(elem)
	delete(s.entries, key)
	s.metricsCollector.SetAmount(len(s.entries))
	return true
}

// Flush removes all entries. Removed entries are not counted as evictions.
func (s *Store[K, V]) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metricsCollector.SetAmount(0)
	s.entries = make(map[K]*list.Element)
	s.lruList.Init()
}

// Resize changes the maximum number of entries and returns how many entries were evicted.
func (s *Store[K, V]) Resize(maxEntries int) (evicted int) {
	if maxEntries <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxEntries = maxEntries
	evicted = len(s.entries) - maxEntries
	if evicted <= 0 {
		return 0
	}
	for i := 0; i < evicted; i++ {
		s.removeOldest()
	}
	s.metricsCollector.SetAmount(len(s.entries))
	s.metricsCollector.AddEvictions(evicted)
	return evicted
}

// Len returns the number of entries, including expired ones that have not been cleaned up yet.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CleanupExpired removes all expired entries and returns how many were removed.
// Entries without expiration time are not affected.
func (s *Store[K, V]) CleanupExpired() (removed int) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, elem := range s.entries {
		if elem.Value.(*entry[K, V]).expired(now) {
			s.lruList.Remove(elem)
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.metricsCollector.SetAmount(len(s.entries))
	}
	return removed
}

// RunPeriodicCleanup removes expired entries every cleanupInterval until ctx is canceled.
// It's supposed to be run in a separate goroutine.
func (s *Store[K, V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}

func (s *Store[K, V]) get(key K) (value V, ok bool) {
	elem, hit := s.entries[key]
	if !hit {
		s.metricsCollector.IncMisses()
		return value, false
	}
	ent := elem.Value.(*entry[K, V])
	if ent.expired(time.Now()) {
		s.lruList.Remove(elem)
		delete(s.entries, key)
		s.metricsCollector.SetAmount(len(s.entries))
		s.metricsCollector.IncMisses()
		return value, false
	}
	s.lruList.MoveToFront(elem)
	s.metricsCollector.IncHits()
	return ent.value, true
}

func (s *Store[K, V]) add(key K, value V, expiresAt time.Time) {
	s.entries[key] = s.lruList.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if len(s.entries) <= s.maxEntries {
		s.metricsCollector.SetAmount(len(s.entries))
		return
	}
	if s.removeOldest() {
		s.metricsCollector.AddEvictions(1)
	}
}

func (s *Store[K, V]) removeOldest() bool {
	elem := s.lruList.Back()
	if elem == nil {
		return false
	}
	s.lruList.Remove(elem)
	delete(s.entries, elem.Value.(*entry[K, V]).key)
	return true
}
