package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the control plane.
type Metrics struct {
	// Control server metrics
	ControlRequestsTotal   *prometheus.CounterVec
	ControlRequestDuration *prometheus.HistogramVec
	ControlConnections     prometheus.Gauge

	// Supervisor metrics
	StateTransitions *prometheus.CounterVec
	RestartsTotal    prometheus.Counter
	HealthChecks     *prometheus.CounterVec

	// Outbound call metrics
	OutboundCalls    *prometheus.CounterVec
	OutboundDuration prometheus.Histogram

	registry  *prometheus.Registry
	startTime time.Time
}

// NewMetrics creates a new metrics collector with its own registry.
// A dedicated registry keeps multiple supervisor instances (and tests)
// from colliding on metric names.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		ControlRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "control_requests_total",
				Help: "Total number of inbound control requests",
			},
			[]string{"method", "path", "status"},
		),
		ControlRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "control_request_duration_seconds",
				Help:    "Inbound control request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		ControlConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "control_connections_open",
				Help: "Number of currently open control connections",
			},
		),

		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_state_transitions_total",
				Help: "Total number of supervisor state transitions",
			},
			[]string{"from", "to"},
		),
		RestartsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "supervisor_restarts_total",
				Help: "Total number of helper restart attempts",
			},
		),
		HealthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_health_checks_total",
				Help: "Total number of helper health checks",
			},
			[]string{"result"},
		),

		OutboundCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbound_calls_total",
				Help: "Total number of outbound calls to the helper",
			},
			[]string{"method", "path", "result"},
		),
		OutboundDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "outbound_call_duration_seconds",
				Help:    "Outbound call duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
	}
}

// Registry exposes the underlying registry so a host can mount it on
// whatever exposition surface it already has.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// RecordControlRequest records a completed inbound request.
func (m *Metrics) RecordControlRequest(method, path, status string, duration time.Duration) {
	m.ControlRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.ControlRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStateTransition records a supervisor state change.
func (m *Metrics) RecordStateTransition(from, to string) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordHealthCheck records a health check outcome.
func (m *Metrics) RecordHealthCheck(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.HealthChecks.WithLabelValues(result).Inc()
}

// RecordOutboundCall records a completed outbound call.
func (m *Metrics) RecordOutboundCall(method, path, result string, duration time.Duration) {
	m.OutboundCalls.WithLabelValues(method, path, result).Inc()
	m.OutboundDuration.Observe(duration.Seconds())
}
