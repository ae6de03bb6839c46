// Package metrics exposes Prometheus instrumentation for the call pipeline.
// All methods are safe on a nil receiver so callers can run uninstrumented.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "voicereach"
	subsystem = "calls"
)

// CallMetrics tracks dispatch outcomes, registry occupancy and completed
// call results.
type CallMetrics struct {
	dispatchTotal  *prometheus.CounterVec
	cleanupRemoved prometheus.Counter
	activeJobs     prometheus.Gauge
	callDuration   prometheus.Histogram
	outcomeTotal   *prometheus.CounterVec
}

// NewCallMetrics registers the call metrics with reg.
func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	factory := promauto.With(reg)
	return &CallMetrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_total",
			Help:      "Call dispatch attempts by status.",
		}, []string{"status"}),
		cleanupRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cleanup_removed_total",
			Help:      "Expired call jobs removed by the cleanup sweep.",
		}),
		activeJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_jobs",
			Help:      "Call jobs currently held in the registry.",
		}),
		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "call_duration_seconds",
			Help:      "Duration of completed calls.",
			Buckets:   []float64{15, 30, 60, 120, 180, 300, 600},
		}),
		outcomeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outcome_total",
			Help:      "Completed calls by goal and outcome.",
		}, []string{"goal", "outcome"}),
	}
}

// ObserveDispatch records one dispatch attempt. status is "dispatched" or
// "failed".
func (m *CallMetrics) ObserveDispatch(status string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(status).Inc()
}

// AddCleanupRemoved records jobs removed by one cleanup sweep.
func (m *CallMetrics) AddCleanupRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupRemoved.Add(float64(n))
}

// SetActiveJobs records registry occupancy.
func (m *CallMetrics) SetActiveJobs(n int) {
	if m == nil {
		return
	}
	m.activeJobs.Set(float64(n))
}

// ObserveCall records one completed call.
func (m *CallMetrics) ObserveCall(goal, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.callDuration.Observe(durationSeconds)
	m.outcomeTotal.WithLabelValues(goal, outcome).Inc()
}
