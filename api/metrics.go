/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Registers counters for the materialization and reconciliation pipelines
  on the default Prometheus registry. The /metrics endpoint (server.go)
  exposes them alongside the standard Go runtime metrics.

METRICS:
  bookings_materialized_total    Auto-bookings created by materialization
  bookings_retracted_total       Auto-bookings soft-deleted by the deletion pass
  slots_skipped_total            Slots skipped (conflict or manual override)
  materialization_runs_total     Completed materialization passes, by outcome
  reconciliation_diffs_total     Diffs recorded by the validator

SEE ALSO:
  - server.go: /metrics endpoint
  - scheduler.go: Records run outcomes
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the engine.
type Metrics struct {
	BookingsCreated   prometheus.Counter
	BookingsRetracted prometheus.Counter
	SlotsSkipped      prometheus.Counter
	Runs              *prometheus.CounterVec
	DiffsRecorded     prometheus.Counter
}

// NewMetrics creates and registers the collectors. Call at most once per
// registry; the default registry panics on duplicate registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_materialized_total",
			Help: "Auto-generated bookings created by materialization passes.",
		}),
		BookingsRetracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_retracted_total",
			Help: "Auto-generated bookings soft-deleted because no active rule implies them.",
		}),
		SlotsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slots_skipped_total",
			Help: "Slots skipped during materialization due to conflicts or manual bookings.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "materialization_runs_total",
			Help: "Materialization passes, labeled by outcome.",
		}, []string{"outcome"}),
		DiffsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciliation_diffs_total",
			Help: "Reconciliation diffs recorded by the validator.",
		}),
	}
	prometheus.MustRegister(
		m.BookingsCreated,
		m.BookingsRetracted,
		m.SlotsSkipped,
		m.Runs,
		m.DiffsRecorded,
	)
	return m
}

// RecordRun updates the counters from a materialization summary.
func (m *Metrics) RecordRun(created, removed, skipped int, failed bool) {
	if m == nil {
		return
	}
	m.BookingsCreated.Add(float64(created))
	m.BookingsRetracted.Add(float64(removed))
	m.SlotsSkipped.Add(float64(skipped))
	outcome := "completed"
	if failed {
		outcome = "failed"
	}
	m.Runs.WithLabelValues(outcome).Inc()
}
