/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/admission"
	"github.com/loadkit/go-loadkit/resultcache"
)

// Handler processes a single request.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Middleware wraps a Handler with additional behavior.
type Middleware[Req, Resp any] func(next Handler[Req, Resp]) Handler[Req, Resp]

// Chain wraps the handler with the provided middlewares.
// The first middleware becomes the outermost one, i.e. it sees the request first.
func Chain[Req, Resp any](handler Handler[Req, Resp], middlewares ...Middleware[Req, Resp]) Handler[Req, Resp] {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// RejectedError is returned by a handler wrapped with AdmissionMiddleware
// when the gate does not admit the request.
type RejectedError struct {
	// Key is the admission key the request was classified under.
	Key string

	// RetryAfter is the estimated time after which the request may be retried.
	RetryAfter time.Duration

	// Backlogged reports whether the request waited in the backlog before being rejected.
	Backlogged bool
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("request with key %q rejected by admission control, retry after %s", e.Key, e.RetryAfter)
}

// KeyFunc extracts the admission key from a request (e.g., a tenant or client ID).
type KeyFunc[Req any] func(req Req) string

// FingerprintFunc builds a deterministic cache key from a request's
// result-relevant inputs.
type FingerprintFunc[Req any] func(req Req) string

// AdmissionMiddleware returns a middleware that admits requests through the gate.
// A request that is not admitted fails with *RejectedError and is not passed
// to the next handler.
func AdmissionMiddleware[Req, Resp any](gate *admission.Gate, keyOf KeyFunc[Req]) Middleware[Req, Resp] {
	return func(next Handler[Req, Resp]) Handler[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			var zero Resp

			key := keyOf(req)
			result, err := gate.Admit(ctx, key)
			if err != nil {
				return zero, err
			}
			if !result.Allowed {
				return zero, &RejectedError{Key: key, RetryAfter: result.RetryAfter, Backlogged: result.Backlogged}
			}
			return next(ctx, req)
		}
	}
}

// CacheMiddleware returns a middleware that serves responses from the cache,
// falling through to the next handler on a miss. Concurrent requests with the
// same fingerprint share a single invocation of the next handler; a handler
// error is surfaced to all of them and is not cached.
func CacheMiddleware[Req, Resp any](cache *resultcache.Cache[string, Resp], fingerprint FingerprintFunc[Req]) Middleware[Req, Resp] {
	return func(next Handler[Req, Resp]) Handler[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			return cache.GetOrCompute(ctx, fingerprint(req), func(ctx context.Context) (Resp, error) {
				return next(ctx, req)
			})
		}
	}
}
