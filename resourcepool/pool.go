/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resourcepool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// ErrAcquireTimeout is returned by Acquire when no handle becomes free within the timeout.
var ErrAcquireTimeout = errors.New("pool acquire timeout")

// ErrPoolClosed is returned by Acquire after the pool has been closed.
var ErrPoolClosed = errors.New("pool is closed")

// ErrAlreadyReleased is returned by Release when the handle has already been released.
var ErrAlreadyReleased = errors.New("resource is already released")

// Factory creates a single pooled resource.
type Factory[T any] func(ctx context.Context) (T, error)

// Resource is a handle of a pooled resource owned by a single acquirer.
type Resource[T any] struct {
	value    T
	pool     *Pool[T]
	released atomic.Bool
}

// Value returns the underlying resource.
func (r *Resource[T]) Value() T {
	return r.value
}

// Release returns the handle to the pool and wakes one waiter if any are queued.
// Releasing the same handle twice is an error, the second call does not affect the pool.
func (r *Resource[T]) Release() error {
	return r.pool.release(r)
}

// Pool is a fixed-size pool of interchangeable resource handles.
// All methods are safe for concurrent use.
type Pool[T any] struct {
	size      int
	resources chan *Resource[T]

	acquireTimeout time.Duration
	closeFunc      func(T) error

	closed atomic.Bool
	inUse  atomic.Int64

	metricsCollector MetricsCollector
}

// Opts represents options for Pool.
type Opts[T any] struct {
	// AcquireTimeout bounds how long Acquire waits for a free handle.
	// Zero means waiting is bounded only by the caller's context.
	AcquireTimeout time.Duration

	// CloseFunc is used by Close to dispose each resource. It can be nil.
	CloseFunc func(T) error

	// MetricsCollector is a collector of the pool metrics.
	// If it's nil, metrics are disabled.
	MetricsCollector MetricsCollector
}

// New creates a new Pool of the provided size, creating all resources eagerly with the factory.
func New[T any](ctx context.Context, size int, factory Factory[T]) (*Pool[T], error) {
	return NewWithOpts[T](ctx, size, factory, Opts[T]{})
}

// NewWithOpts creates a new Pool of the provided size with options,
// creating all resources eagerly with the factory.
// If the factory fails, the already created resources are disposed and the error is returned.
func NewWithOpts[T any](ctx context.Context, size int, factory Factory[T], opts Opts[T]) (*Pool[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size should be positive, got %d", size)
	}
	if factory == nil {
		return nil, fmt.Errorf("factory should not be nil")
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}

	p := &Pool[T]{
		size:             size,
		resources:        make(chan *Resource[T], size),
		acquireTimeout:   opts.AcquireTimeout,
		closeFunc:        opts.CloseFunc,
		metricsCollector: metrics,
	}

	for i := 0; i < size; i++ {
		value, err := factory(ctx)
		if err != nil {
			p.disposeIdle()
			return nil, fmt.Errorf("create pool resource #%d: %w", i, err)
		}
		p.resources <- &Resource[T]{value: value, pool: p}
	}
	return p, nil
}

// Acquire blocks until a free handle is available, the pool's acquire timeout fires,
// or ctx is done. On timeout it returns ErrAcquireTimeout.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	return p.AcquireWithTimeout(ctx, p.acquireTimeout)
}

// AcquireWithTimeout is a version of Acquire with an explicit timeout.
// Zero timeout means waiting is bounded only by ctx.
func (p *Pool[T]) AcquireWithTimeout(ctx context.Context, timeout time.Duration) (*Resource[T], error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	// Fast path, no waiting.
	select {
	case r := <-p.resources:
		return p.acquired(r), nil
	default:
	}

	p.metricsCollector.IncWaiting()
	defer p.metricsCollector.DecWaiting()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case r := <-p.resources:
		return p.acquired(r), nil
	case <-timeoutCh:
		p.metricsCollector.IncAcquireTimeouts()
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the total number of handles owned by the pool.
func (p *Pool[T]) Size() int {
	return p.size
}

// InUse returns the number of currently acquired handles.
func (p *Pool[T]) InUse() int {
	return int(p.inUse.Load())
}

// Close marks the pool as closed, waits until all handles are returned (bounded by ctx),
// and disposes them. Waiters blocked in Acquire are not interrupted; they fail on their
// own timeouts or contexts.
func (p *Pool[T]) Close(ctx context.Context) error {
	if p.closed.Swap(true) {
		return nil
	}

	var errs []error
	for i := 0; i < p.size; i++ {
		select {
		case r := <-p.resources:
			if err := p.dispose(r.value); err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			return fmt.Errorf("drain pool: %w", ctx.Err())
		}
	}
	return errors.Join(errs...)
}

func (p *Pool[T]) acquired(r *Resource[T]) *Resource[T] {
	r.released.Store(false)
	p.metricsCollector.SetInUse(int(p.inUse.Inc()))
	return r
}

func (p *Pool[T]) release(r *Resource[T]) error {
	if r.released.Swap(true) {
		return ErrAlreadyReleased
	}
	p.metricsCollector.SetInUse(int(p.inUse.Dec()))
	p.resources <- r
	return nil
}

func (p *Pool[T]) disposeIdle() {
	for {
		select {
		case r := <-p.resources:
			_ = p.dispose(r.value)
		default:
			return
		}
	}
}

func (p *Pool[T]) dispose(value T) error {
	if p.closeFunc == nil {
		return nil
	}
	return p.closeFunc(value)
}
