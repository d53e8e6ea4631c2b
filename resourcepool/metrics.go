/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resourcepool

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadkit/go-loadkit/internal/libinfo"
)

// MetricsCollector represents a collector of the pool metrics.
type MetricsCollector interface {
	// SetInUse sets the number of currently acquired handles.
	SetInUse(int)

	// IncWaiting increments the number of callers blocked waiting for a free handle.
	IncWaiting()

	// DecWaiting decrements the number of callers blocked waiting for a free handle.
	DecWaiting()

	// IncAcquireTimeouts increments the total number of acquisitions that timed out.
	IncAcquireTimeouts()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the pool.
type PrometheusMetrics struct {
	InUse           prometheus.Gauge
	Waiting         prometheus.Gauge
	AcquireTimeouts prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	inUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   opts.Namespace,
		Name:        "resource_pool_in_use",
		Help:        "Number of currently acquired pool handles.",
		ConstLabels: constLabels,
	})

	waiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   opts.Namespace,
		Name:        "resource_pool_waiting",
		Help:        "Number of callers blocked waiting for a free handle.",
		ConstLabels: constLabels,
	})

	acquireTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "resource_pool_acquire_timeouts_total",
		Help:        "Number of acquisitions that timed out.",
		ConstLabels: constLabels,
	})

	return &PrometheusMetrics{
		InUse:           inUse,
		Waiting:         waiting,
		AcquireTimeouts: acquireTimeouts,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.InUse,
		pm.Waiting,
		pm.AcquireTimeouts,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.InUse)
	prometheus.Unregister(pm.Waiting)
	prometheus.Unregister(pm.AcquireTimeouts)
}

// SetInUse sets the number of currently acquired handles.
func (pm *PrometheusMetrics) SetInUse(n int) {
	pm.InUse.Set(float64(n))
}

// IncWaiting increments the number of callers blocked waiting for a free handle.
func (pm *PrometheusMetrics) IncWaiting() {
	pm.Waiting.Inc()
}

// DecWaiting decrements the number of callers blocked waiting for a free handle.
func (pm *PrometheusMetrics) DecWaiting() {
	pm.Waiting.Dec()
}

// IncAcquireTimeouts increments the total number of acquisitions that timed out.
func (pm *PrometheusMetrics) IncAcquireTimeouts() {
	pm.AcquireTimeouts.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetInUse(int)        {}
func (disabledMetrics) IncWaiting()         {}
func (disabledMetrics) DecWaiting()         {}
func (disabledMetrics) IncAcquireTimeouts() {}
