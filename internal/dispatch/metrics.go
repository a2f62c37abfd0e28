package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
	OutcomeDropped = "dropped"
)

// Metrics counts deliveries per channel. A nil *Metrics records nothing.
type Metrics struct {
	Attempts        *prometheus.CounterVec
	Tasks           *prometheus.CounterVec
	PushConnections prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_dispatch_attempts_total",
			Help: "Delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_dispatch_tasks_total",
			Help: "Detached dispatch tasks by name and outcome",
		}, []string{"task", "outcome"}),
		PushConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "civicdesk_push_connections",
			Help: "Currently joined real-time push connections",
		}),
	}
}

// Observe counts one delivery result on channel.
func (m *Metrics) Observe(channel string, r Result) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !r.Success {
		outcome = OutcomeFailure
	}
	m.Attempts.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) IncDropped(channel string) {
	if m != nil {
		m.Attempts.WithLabelValues(channel, OutcomeDropped).Inc()
	}
}

func (m *Metrics) IncTask(name, outcome string) {
	if m != nil {
		m.Tasks.WithLabelValues(name, outcome).Inc()
	}
}

func (m *Metrics) SetConnections(n int) {
	if m != nil {
		m.PushConnections.Set(float64(n))
	}
}
