// Package metrics exposes planning telemetry as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/risk"
)

// Metrics holds all Prometheus metrics for workplan
type Metrics struct {
	// Planning run metrics
	Plans        *prometheus.CounterVec
	PlanDuration *prometheus.HistogramVec

	// Detail hydration metrics
	Chunks *prometheus.CounterVec

	// Classification metrics
	Decisions *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Plans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workplan_plans_total",
				Help: "Total number of planning runs by outcome",
			},
			[]string{"outcome"},
		),
		PlanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workplan_plan_duration_seconds",
				Help:    "Planning run duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"outcome"},
		),
		Chunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workplan_detail_chunks_total",
				Help: "Total number of detail chunks by outcome",
			},
			[]string{"outcome"},
		),
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workplan_decisions_total",
				Help: "Total number of item classifications by decision",
			},
			[]string{"decision", "spot_check"},
		),
	}
}

// ObservePlan records a finished planning run.
func (m *Metrics) ObservePlan(outcome string, elapsed time.Duration) {
	m.Plans.WithLabelValues(outcome).Inc()
	m.PlanDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveChunk records a finished detail chunk.
func (m *Metrics) ObserveChunk(outcome string) {
	m.Chunks.WithLabelValues(outcome).Inc()
}

// ObserveDecision records one item classification.
func (m *Metrics) ObserveDecision(decision risk.Decision, spotCheck bool) {
	m.Decisions.WithLabelValues(string(decision), strconv.FormatBool(spotCheck)).Inc()
}

// NewRegistry creates a new Prometheus registry with metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// HandlerFor returns an HTTP handler for a specific registry
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ planner.Recorder = (*Metrics)(nil)
