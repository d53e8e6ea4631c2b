/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package admission provides admission control for request-handling layers:
// per-key rate limiting with interchangeable algorithms and optional backlog queuing.
//
// The package implements three limiting algorithms behind a single Limiter interface:
//   - Token bucket with greedy continuous refill and injectable per-key bucket storage
//   - Leaky bucket (GCRA variant)
//   - Sliding window
//
// A Gate composes a Limiter with a bounded backlog: when the limiter rejects a key,
// the caller may wait in the backlog (up to a configurable timeout) for tokens to
// become available instead of being rejected immediately.
package admission
