package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	stepFailures       *prometheus.CounterVec
	bridgeExecutions   *prometheus.CounterVec
	placementDecisions *prometheus.CounterVec
	sinkWrites         *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"pipeline", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Pipeline run wall-clock duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pipeline"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_step_failures_total",
				Help: "Step failures by step kind",
			},
			[]string{"kind"},
		),
		bridgeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "script_bridge_executions_total",
				Help: "External script executions by outcome",
			},
			[]string{"outcome"},
		),
		placementDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_decisions_total",
				Help: "Placement decisions by chosen tier and qualification",
			},
			[]string{"tier", "qualified"},
		),
		sinkWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_writes_total",
				Help: "Output sink writes by kind and outcome",
			},
			[]string{"kind", "status"},
		),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.stepFailures,
		m.bridgeExecutions,
		m.placementDecisions,
		m.sinkWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRun(pipeline string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(pipeline, status(success)).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (m *Metrics) RecordStepFailure(kind string) {
	if m == nil {
		return
	}
	m.stepFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordBridge(outcome string) {
	if m == nil {
		return
	}
	m.bridgeExecutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPlacement(tier string, qualified bool) {
	if m == nil {
		return
	}
	q := "false"
	if qualified {
		q = "true"
	}
	m.placementDecisions.WithLabelValues(tier, q).Inc()
}

func (m *Metrics) RecordSink(kind string, success bool) {
	if m == nil {
		return
	}
	m.sinkWrites.WithLabelValues(kind, status(success)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
