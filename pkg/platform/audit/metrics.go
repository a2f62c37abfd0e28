package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons reported by Metrics.IncDropped.
const (
	DropNoActor     = "no_actor"
	DropBufferFull  = "buffer_full"
	DropSampled     = "sampled"
	DropCircuitOpen = "circuit_open"
	DropClosed      = "closed"
)

// Metrics holds Prometheus metrics for audit recording.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Recorded            prometheus.Counter
	Persisted           prometheus.Counter
	Dropped             *prometheus.CounterVec
	PersistFailures     prometheus.Counter
	SinkFailures        prometheus.Counter
	CircuitBreakerState prometheus.Gauge
}

// NewMetrics registers audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_audit_recorded_total",
			Help: "Total number of audit entries accepted into the buffer",
		}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_audit_persisted_total",
			Help: "Total number of audit entries written to the store",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_audit_dropped_total",
			Help: "Total number of audit entries dropped before persistence, by reason",
		}, []string{"reason"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_audit_persist_failures_total",
			Help: "Total number of audit entry persistence failures",
		}),
		SinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_audit_sink_failures_total",
			Help: "Total number of failed deliveries to audit sinks",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "civicdesk_audit_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncRecorded() {
	if m != nil {
		m.Recorded.Inc()
	}
}

func (m *Metrics) IncPersisted() {
	if m != nil {
		m.Persisted.Inc()
	}
}

func (m *Metrics) IncDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) IncSinkFailures() {
	if m != nil {
		m.SinkFailures.Inc()
	}
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
