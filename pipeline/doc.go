/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package pipeline composes admission control and result caching around a request handler.
//
// A Handler is a plain function from a request to a response. Middlewares wrap handlers,
// and Chain applies them so that the first middleware is the outermost one:
//
//	handler := pipeline.Chain(compute,
//		pipeline.AdmissionMiddleware[Query, Report](gate, func(q Query) string { return q.Tenant }),
//		pipeline.CacheMiddleware[Query, Report](cache, func(q Query) string { return q.Fingerprint() }),
//	)
//
// With this ordering a rejected request fails fast with *RejectedError and never touches
// the cache, while an admitted request is served from the cache without recomputation
// when a fresh result is available.
package pipeline
