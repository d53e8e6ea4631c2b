/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package resultcache provides in-memory memoization of expensive computations with
// per-entry TTL and a single-flight guarantee: concurrent calls for the same key
// trigger at most one computation, and all callers receive its result.
//
// Failed computations are never cached, so a subsequent call for the same key
// recomputes. Expired entries are treated as absent and are evicted lazily on
// access or by a background cleanup (see Cache.RunPeriodicCleanup and
// Cache.NewCleanupWorker).
package resultcache
