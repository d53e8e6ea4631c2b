/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package lrustore provides a bounded in-memory key-value store with LRU eviction,
// per-entry expiration, and Prometheus metrics. It backs the per-key state of the
// admission and resultcache packages.
package lrustore
