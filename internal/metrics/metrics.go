// Package metrics exposes engine state as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"archops-sim/internal/sim"
	"archops-sim/internal/telemetry"
)

const namespace = "archops"

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests and multiple sessions do not collide.
type Metrics struct {
	registry *prometheus.Registry

	budget      prometheus.Gauge
	rating      prometheus.Gauge
	score       prometheus.Gauge
	debt        prometheus.Gauge
	coverage    prometheus.Gauge
	capacity    prometheus.Gauge
	backlog     prometheus.Gauge
	failureRate prometheus.Gauge
	p95         prometheus.Gauge
	regPressure prometheus.Gauge
	simTime     prometheus.Gauge

	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	events       *prometheus.CounterVec
	incidents    prometheus.Counter
	runs         *prometheus.CounterVec
	finalScore   prometheus.Histogram
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "run", Name: name, Help: help})
	}

	return &Metrics{
		registry:    reg,
		budget:      gauge("budget", "Current budget"),
		rating:      gauge("rating", "Current store rating (1..5)"),
		score:       gauge("score", "Raw score accumulated this run"),
		debt:        gauge("architecture_debt", "Architecture debt (0..100)"),
		coverage:    gauge("coverage_pct", "Test coverage percentage"),
		capacity:    gauge("capacity", "Current team capacity points"),
		backlog:     gauge("backlog_tickets", "Open tickets in the backlog"),
		failureRate: gauge("failure_rate", "Fraction of requests failing"),
		p95:         gauge("p95_ms", "p95 latency in milliseconds"),
		regPressure: gauge("regulatory_pressure", "Regulatory pressure (0..100)"),
		simTime:     gauge("time_seconds", "Simulated seconds elapsed"),

		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "ticks_total",
			Help: "Total engine ticks processed",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "engine", Name: "tick_duration_seconds",
			Help:    "Wall time spent in one engine tick including fan-out",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "events_total",
			Help: "Drained engine events by type",
		}, []string{"type"}),
		incidents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "incidents_total",
			Help: "Incident notices emitted",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "run", Name: "finished_total",
			Help: "Finished runs by end reason",
		}, []string{"end_reason"}),
		finalScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "run", Name: "final_score",
			Help:    "Distribution of final run scores",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveState updates the run gauges from one state row.
func (m *Metrics) ObserveState(row telemetry.StateRow) {
	m.budget.Set(row.Budget)
	m.rating.Set(row.Rating)
	m.score.Set(row.Score)
	m.debt.Set(row.Debt)
	m.coverage.Set(row.Coverage)
	m.capacity.Set(row.Capacity)
	m.backlog.Set(float64(row.Backlog))
	m.failureRate.Set(row.FailureRate)
	m.p95.Set(row.P95Ms)
	m.regPressure.Set(row.RegPressure)
	m.simTime.Set(float64(row.TimeSec))
}

// ObserveTick counts one tick and its duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// ObserveEvent counts one drained event.
func (m *Metrics) ObserveEvent(row telemetry.EventRow) {
	m.events.WithLabelValues(row.Type).Inc()
	if row.Category == sim.CategoryIncident {
		m.incidents.Inc()
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(row telemetry.RunRow) {
	m.runs.WithLabelValues(row.EndReason).Inc()
	m.finalScore.Observe(float64(row.FinalScore))
}
