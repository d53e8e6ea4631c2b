/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package admission

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadkit/go-loadkit/internal/libinfo"
)

// GateMetricsCollector represents a collector of metrics for admission decisions.
type GateMetricsCollector interface {
	// IncAllowed increments the total number of admitted requests.
	IncAllowed()

	// IncRejected increments the total number of rejected requests.
	IncRejected()

	// IncBacklogged increments the total number of requests that were parked in the backlog.
	IncBacklogged()
}

// PrometheusGateMetricsOpts represents options for PrometheusGateMetrics.
type PrometheusGateMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusGateMetrics represents Prometheus metrics for admission decisions.
type PrometheusGateMetrics struct {
	AllowedTotal    prometheus.Counter
	RejectedTotal   prometheus.Counter
	BackloggedTotal prometheus.Counter
}

// NewPrometheusGateMetrics creates a new instance of PrometheusGateMetrics with default options.
func NewPrometheusGateMetrics() *PrometheusGateMetrics {
	return NewPrometheusGateMetricsWithOpts(PrometheusGateMetricsOpts{})
}

// NewPrometheusGateMetricsWithOpts creates a new instance of PrometheusGateMetrics with the provided options.
func NewPrometheusGateMetricsWithOpts(opts PrometheusGateMetricsOpts) *PrometheusGateMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	allowedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "admission_allowed_total",
		Help:        "Number of admitted requests.",
		ConstLabels: constLabels,
	})

	rejectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "admission_rejected_total",
		Help:        "Number of rejected requests.",
		ConstLabels: constLabels,
	})

	backloggedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "admission_backlogged_total",
		Help:        "Number of requests that were parked in the backlog.",
		ConstLabels: constLabels,
	})

	return &PrometheusGateMetrics{
		AllowedTotal:    allowedTotal,
		RejectedTotal:   rejectedTotal,
		BackloggedTotal: backloggedTotal,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusGateMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.AllowedTotal,
		pm.RejectedTotal,
		pm.BackloggedTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusGateMetrics) Unregister() {
	prometheus.Unregister(pm.AllowedTotal)
	prometheus.Unregister(pm.RejectedTotal)
	prometheus.Unregister(pm.BackloggedTotal)
}

// IncAllowed increments the total number of admitted requests.
func (pm *PrometheusGateMetrics) IncAllowed() {
	pm.AllowedTotal.Inc()
}

// IncRejected increments the total number of rejected requests.
func (pm *PrometheusGateMetrics) IncRejected() {
	pm.RejectedTotal.Inc()
}

// IncBacklogged increments the total number of requests that were parked in the backlog.
func (pm *PrometheusGateMetrics) IncBacklogged() {
	pm.BackloggedTotal.Inc()
}

type disabledGateMetrics struct{}

func (disabledGateMetrics) IncAllowed()    {}
func (disabledGateMetrics) IncRejected()   {}
func (disabledGateMetrics) IncBacklogged() {}
