/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package deferred

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadkit/go-loadkit/internal/libinfo"
)

const metricsLabelStatus = "status"

// MetricsCollector represents a collector of the executor metrics.
type MetricsCollector interface {
	// IncSubmitted increments the total number of successfully submitted tasks.
	IncSubmitted()

	// IncRejected increments the total number of submissions rejected due to a full queue.
	IncRejected()

	// IncDone increments the total number of finished tasks with the given terminal state.
	IncDone(state State)

	// SetQueueLen sets the number of tasks waiting in the submission queue.
	SetQueueLen(int)

	// SetBusyWorkers sets the number of workers currently executing a task.
	SetBusyWorkers(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the executor.
type PrometheusMetrics struct {
	SubmittedTotal prometheus.Counter
	RejectedTotal  prometheus.Counter
	DoneTotal      *prometheus.CounterVec
	QueueLength    prometheus.Gauge
	BusyWorkers    prometheus.Gauge
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	submittedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "deferred_tasks_submitted_total",
		Help:        "Number of successfully submitted tasks.",
		ConstLabels: constLabels,
	})

	rejectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "deferred_tasks_rejected_total",
		Help:        "Number of submissions rejected due to a full queue.",
		ConstLabels: constLabels,
	})

	doneTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "deferred_tasks_done_total",
		Help:        "Number of finished tasks by terminal state.",
		ConstLabels: constLabels,
	}, []string{metricsLabelStatus})

	queueLength := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   opts.Namespace,
		Name:        "deferred_tasks_queue_length",
		Help:        "Number of tasks waiting in the submission queue.",
		ConstLabels: constLabels,
	})

	busyWorkers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   opts.Namespace,
		Name:        "deferred_busy_workers",
		Help:        "Number of workers currently executing a task.",
		ConstLabels: constLabels,
	})

	return &PrometheusMetrics{
		SubmittedTotal: submittedTotal,
		RejectedTotal:  rejectedTotal,
		DoneTotal:      doneTotal,
		QueueLength:    queueLength,
		BusyWorkers:    busyWorkers,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.SubmittedTotal,
		pm.RejectedTotal,
		pm.DoneTotal,
		pm.QueueLength,
		pm.BusyWorkers,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.SubmittedTotal)
	prometheus.Unregister(pm.RejectedTotal)
	prometheus.Unregister(pm.DoneTotal)
	prometheus.Unregister(pm.QueueLength)
	prometheus.Unregister(pm.BusyWorkers)
}

// IncSubmitted increments the total number of successfully submitted tasks.
func (pm *PrometheusMetrics) IncSubmitted() {
	pm.SubmittedTotal.Inc()
}

// IncRejected increments the total number of submissions rejected due to a full queue.
func (pm *PrometheusMetrics) IncRejected() {
	pm.RejectedTotal.Inc()
}

// IncDone increments the total number of finished tasks with the given terminal state.
func (pm *PrometheusMetrics) IncDone(state State) {
	pm.DoneTotal.With(prometheus.Labels{metricsLabelStatus: state.String()}).Inc()
}

// SetQueueLen sets the number of tasks waiting in the submission queue.
func (pm *PrometheusMetrics) SetQueueLen(n int) {
	pm.QueueLength.Set(float64(n))
}

// SetBusyWorkers sets the number of workers currently executing a task.
func (pm *PrometheusMetrics) SetBusyWorkers(n int) {
	pm.BusyWorkers.Set(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) IncSubmitted()      {}
func (disabledMetrics) IncRejected()       {}
func (disabledMetrics) IncDone(State)      {}
func (disabledMetrics) SetQueueLen(int)    {}
func (disabledMetrics) SetBusyWorkers(int) {}
