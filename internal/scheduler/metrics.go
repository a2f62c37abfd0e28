package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// Metrics counts job runs. A nil *Metrics records nothing.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Sent     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_scheduler_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		}, []string{"job", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civicdesk_scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		Sent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_scheduler_notifications_total",
			Help: "Notifications fanned out by scheduled jobs, by job and result",
		}, []string{"job", "result"}),
	}
}

func (m *Metrics) observeRun(job, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(job, outcome).Inc()
	if outcome != outcomeSkipped {
		m.Duration.WithLabelValues(job).Observe(d.Seconds())
	}
}

func (m *Metrics) incSent(job, result string) {
	if m != nil {
		m.Sent.WithLabelValues(job, result).Inc()
	}
}
