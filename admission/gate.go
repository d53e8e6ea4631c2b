/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/lrustore"
)

// DefaultGateBacklogTimeout determines the default timeout for backlog processing.
const DefaultGateBacklogTimeout = time.Second * 5

// BacklogParams defines parameters for the backlog processing.
type BacklogParams struct {
	// MaxKeys is the maximum number of keys with own backlog slots.
	// If it's zero, a single backlog is shared by all keys.
	MaxKeys int

	// Limit is the maximum number of requests waiting in the backlog per key.
	// Zero disables backlogging, rejected requests are not queued.
	Limit int

	// Timeout is the maximum time a request may spend waiting in the backlog.
	Timeout time.Duration
}

// Result contains the outcome of an admission decision.
type Result struct {
	// Allowed reports whether the request was admitted.
	Allowed bool

	// Backlogged reports whether the request spent time in the backlog.
	Backlogged bool

	// RetryAfter is the estimated time after which a rejected request may be retried.
	RetryAfter time.Duration
}

// backlogSlotsProvider provides backlog slots for the gate.
type backlogSlotsProvider func(key string) chan struct{}

// Gate combines a Limiter with an optional bounded backlog.
// When the limiter rejects a key and backlogging is enabled, Admit parks the caller
// in the backlog and periodically re-checks the limiter until the request is admitted,
// the backlog timeout fires, or the context is done.
type Gate struct {
	limiter         Limiter
	getBacklogSlots backlogSlotsProvider
	backlogTimeout  time.Duration
	metrics         GateMetricsCollector
}

// GateOpts represents options for Gate.
type GateOpts struct {
	// MetricsCollector is a collector of the gate metrics.
	// If it's nil, metrics are disabled.
	MetricsCollector GateMetricsCollector
}

// NewGate creates a new Gate with the provided limiter and backlog parameters.
func NewGate(limiter Limiter, backlogParams BacklogParams) (*Gate, error) {
	return NewGateWithOpts(limiter, backlogParams, GateOpts{})
}

// NewGateWithOpts creates a new Gate with the provided limiter, backlog parameters, and options.
func NewGateWithOpts(limiter Limiter, backlogParams BacklogParams, opts GateOpts) (*Gate, error) {
	if backlogParams.Limit < 0 {
		return nil, fmt.Errorf("backlog limit should not be negative, got %d", backlogParams.Limit)
	}
	if backlogParams.MaxKeys < 0 {
		return nil, fmt.Errorf("max keys for backlog should not be negative, got %d", backlogParams.MaxKeys)
	}
	var getBacklogSlots backlogSlotsProvider
	if backlogParams.Limit > 0 {
		getBacklogSlots = newBacklogSlotsProvider(backlogParams.Limit, backlogParams.MaxKeys)
	}

	if backlogParams.Timeout == 0 {
		backlogParams.Timeout = DefaultGateBacklogTimeout
	}

	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledGateMetrics{}
	}

	return &Gate{
		limiter:         limiter,
		getBacklogSlots: getBacklogSlots,
		backlogTimeout:  backlogParams.Timeout,
		metrics:         metrics,
	}, nil
}

// Admit decides whether a request for the given key may proceed.
// The returned error is non-nil only when the limiter fails or the context is done
// while the request waits in the backlog; a plain rejection is a normal Result,
// not an error.
func (g *Gate) Admit(ctx context.Context, key string) (Result, error) {
	allow, retryAfter, err := g.limiter.Allow(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("admission limiter: %w", err)
	}

	if allow {
		g.metrics.IncAllowed()
		return Result{Allowed: true}, nil
	}

	if g.getBacklogSlots == nil { // Backlogging is disabled.
		g.metrics.IncRejected()
		return Result{RetryAfter: retryAfter}, nil
	}

	return g.admitBacklogged(ctx, key, retryAfter)
}

func (g *Gate) admitBacklogged(ctx context.Context, key string, retryAfter time.Duration) (Result, error) {
	backlogSlots := g.getBacklogSlots(key)
	backlogged := false
	select {
	case backlogSlots <- struct{}{}:
		backlogged = true
		g.metrics.IncBacklogged()
	default:
		// There are no free slots in the backlog, reject the request immediately.
		g.metrics.IncRejected()
		return Result{RetryAfter: retryAfter}, nil
	}

	freeBacklogSlotIfNeeded := func() {
		if backlogged {
			select {
			case <-backlogSlots:
				backlogged = false
			default:
			}
		}
	}

	defer freeBacklogSlotIfNeeded()

	backlogTimeoutTimer := time.NewTimer(g.backlogTimeout)
	defer backlogTimeoutTimer.Stop()

	retryTimer := time.NewTimer(retryAfter)
	defer retryTimer.Stop()

	var allow bool
	var err error

	for {
		select {
		case <-retryTimer.C:
			// Will do another check of the limiter.
		case <-backlogTimeoutTimer.C:
			freeBacklogSlotIfNeeded()
			g.metrics.IncRejected()
			return Result{Backlogged: true, RetryAfter: retryAfter}, nil
		case <-ctx.Done():
			freeBacklogSlotIfNeeded()
			return Result{Backlogged: true, RetryAfter: retryAfter}, ctx.Err()
		}

		if allow, retryAfter, err = g.limiter.Allow(ctx, key); err != nil {
			freeBacklogSlotIfNeeded()
			return Result{Backlogged: true}, fmt.Errorf("admission limiter: %w", err)
		}

		if allow {
			freeBacklogSlotIfNeeded()
			g.metrics.IncAllowed()
			return Result{Allowed: true, Backlogged: true}, nil
		}

		if !retryTimer.Stop() {
			select {
			case <-retryTimer.C:
			default:
			}
		}
		retryTimer.Reset(retryAfter)
	}
}

// newBacklogSlotsProvider creates a new backlog slots provider.
func newBacklogSlotsProvider(backlogLimit, maxKeys int) backlogSlotsProvider {
	if maxKeys == 0 {
		backlogSlots := make(chan struct{}, backlogLimit)
		return func(key string) chan struct{} {
			return backlogSlots
		}
	}
	keysZone, _ := lrustore.New[string, chan struct{}](maxKeys, nil) // Error is always nil here.
	return func(key string) chan struct{} {
		backlogSlots, _ := keysZone.GetOrSet(key, func() chan struct{} {
			return make(chan struct{}, backlogLimit)
		})
		return backlogSlots
	}
}
