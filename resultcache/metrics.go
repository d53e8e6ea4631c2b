/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resultcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadkit/go-loadkit/internal/libinfo"
)

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) the cache is used.
type MetricsCollector interface {
	// IncHits increments the total number of times a live entry was found in the cache.
	IncHits()

	// IncMisses increments the total number of times no live entry was found in the cache.
	IncMisses()

	// IncComputations increments the total number of invoked computations.
	IncComputations()

	// IncComputeFailures increments the total number of computations that finished with an error.
	IncComputeFailures()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the cache.
type PrometheusMetrics struct {
	HitsTotal            prometheus.Counter
	MissesTotal          prometheus.Counter
	ComputationsTotal    prometheus.Counter
	ComputeFailuresTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	hitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "result_cache_hits_total",
		Help:        "Number of times a live entry was found in the cache.",
		ConstLabels: constLabels,
	})

	missesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "result_cache_misses_total",
		Help:        "Number of times no live entry was found in the cache.",
		ConstLabels: constLabels,
	})

	computationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "result_cache_computations_total",
		Help:        "Number of invoked computations.",
		ConstLabels: constLabels,
	})

	computeFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "result_cache_compute_failures_total",
		Help:        "Number of computations that finished with an error.",
		ConstLabels: constLabels,
	})

	return &PrometheusMetrics{
		HitsTotal:            hitsTotal,
		MissesTotal:          missesTotal,
		ComputationsTotal:    computationsTotal,
		ComputeFailuresTotal: computeFailuresTotal,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.HitsTotal,
		pm.MissesTotal,
		pm.ComputationsTotal,
		pm.ComputeFailuresTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.HitsTotal)
	prometheus.Unregister(pm.MissesTotal)
	prometheus.Unregister(pm.ComputationsTotal)
	prometheus.Unregister(pm.ComputeFailuresTotal)
}

// IncHits increments the total number of times a live entry was found in the cache.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.Inc()
}

// IncMisses increments the total number of times no live entry was found in the cache.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.Inc()
}

// IncComputations increments the total number of invoked computations.
func (pm *PrometheusMetrics) IncComputations() {
	pm.ComputationsTotal.Inc()
}

// IncComputeFailures increments the total number of computations that finished with an error.
func (pm *PrometheusMetrics) IncComputeFailures() {
	pm.ComputeFailuresTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncHits()            {}
func (disabledMetrics) IncMisses()          {}
func (disabledMetrics) IncComputations()    {}
func (disabledMetrics) IncComputeFailures() {}
