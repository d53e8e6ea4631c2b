/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package admission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loadkit/go-loadkit/lrustore"
)

// DefaultTokenBucketMaxKeys is a default value of maximum tracked keys for TokenBucketLimiter.
const DefaultTokenBucketMaxKeys = 10000

// Bucket holds token-bucket state for a single key.
// Tokens accumulate continuously at the configured refill rate up to the bucket capacity.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// BucketStore is a storage of per-key buckets.
// Implementations must be safe for concurrent use.
type BucketStore interface {
	// GetOrCreate returns the bucket stored under key, creating it with create if absent.
	GetOrCreate(key string, create func() *Bucket) *Bucket
}

// LRUBucketStore is a BucketStore bounded by a maximum number of keys with LRU eviction.
// An evicted key starts over with a full bucket on its next request.
type LRUBucketStore struct {
	store *lrustore.Store[string, *Bucket]
}

// NewLRUBucketStore creates a new LRUBucketStore bounded by maxKeys.
func NewLRUBucketStore(maxKeys int) (*LRUBucketStore, error) {
	store, err := lrustore.New[string, *Bucket](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &LRUBucketStore{store: store}, nil
}

// GetOrCreate returns the bucket stored under key, creating it with create if absent.
func (s *LRUBucketStore) GetOrCreate(key string, create func() *Bucket) *Bucket {
	b, _ := s.store.GetOrSet(key, create)
	return b
}

// TokenBucketLimiter implements the token bucket algorithm with greedy refill:
// each key owns a bucket of capacity burst that is refilled continuously at maxRate,
// and every admitted request consumes one token. The admission decision is immediate
// and never blocks.
type TokenBucketLimiter struct {
	maxRate             Rate
	burst               int
	buckets             BucketStore
	nowFunc             func() time.Time
	tokensPerNanosecond float64
}

// TokenBucketLimiterOpts represents options for TokenBucketLimiter.
type TokenBucketLimiterOpts struct {
	// MaxKeys is the maximum number of tracked keys when the default LRU bucket store is used.
	// If it's zero, DefaultTokenBucketMaxKeys is used. Ignored when Store is provided.
	MaxKeys int

	// Store is an injectable storage of per-key buckets.
	// If it's nil, an LRU store bounded by MaxKeys is created.
	Store BucketStore

	// NowFunc is used to get the current time. Intended for tests. time.Now is used if nil.
	NowFunc func() time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// burst is the bucket capacity; if it's zero, maxRate.Count is used.
func NewTokenBucketLimiter(maxRate Rate, burst int) (*TokenBucketLimiter, error) {
	return NewTokenBucketLimiterWithOpts(maxRate, burst, TokenBucketLimiterOpts{})
}

// NewTokenBucketLimiterWithOpts creates a new token bucket rate limiter with the provided options.
func NewTokenBucketLimiterWithOpts(maxRate Rate, burst int, opts TokenBucketLimiterOpts) (*TokenBucketLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate should be positive, got %s", maxRate)
	}
	if burst < 0 {
		return nil, fmt.Errorf("burst should not be negative, got %d", burst)
	}
	if burst == 0 {
		burst = maxRate.Count
	}

	buckets := opts.Store
	if buckets == nil {
		maxKeys := opts.MaxKeys
		if maxKeys == 0 {
			maxKeys = DefaultTokenBucketMaxKeys
		}
		var err error
		if buckets, err = NewLRUBucketStore(maxKeys); err != nil {
			return nil, err
		}
	}

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &TokenBucketLimiter{
		maxRate:             maxRate,
		burst:               burst,
		buckets:             buckets,
		nowFunc:             nowFunc,
		tokensPerNanosecond: float64(maxRate.Count) / float64(maxRate.Duration.Nanoseconds()),
	}, nil
}

// Allow checks if the request should be admitted based on the rate limit.
// It refills the key's bucket proportionally to the time elapsed since the last refill
// (capped at the bucket capacity) and consumes one token if at least one is available.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	now := l.nowFunc()
	b := l.buckets.GetOrCreate(key, func() *Bucket {
		return &Bucket{tokens: float64(l.burst), lastRefill: now}
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens += float64(elapsed.Nanoseconds()) * l.tokensPerNanosecond
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0, nil
	}

	retryAfter = time.Duration((1 - b.tokens) / l.tokensPerNanosecond)
	return false, retryAfter, nil
}
