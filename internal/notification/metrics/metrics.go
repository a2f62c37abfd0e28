package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Created        *prometheus.CounterVec
	CreateFailures prometheus.Counter
	Purged         prometheus.Counter
	ListDuration   prometheus.Histogram
}

// New registers notification metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_notifications_created_total",
			Help: "Total number of notifications created, by type",
		}, []string{"type"}),
		CreateFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_notification_create_failures_total",
			Help: "Total number of notifications that could not be stored",
		}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_notifications_purged_total",
			Help: "Total number of read notifications removed by retention",
		}),
		ListDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civicdesk_notification_list_duration_seconds",
			Help:    "Duration of notification listing (inbox read path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncCreated(notificationType string) {
	if m != nil {
		m.Created.WithLabelValues(notificationType).Inc()
	}
}

func (m *Metrics) IncCreateFailure() {
	if m != nil {
		m.CreateFailures.Inc()
	}
}

func (m *Metrics) AddPurged(n int) {
	if m != nil && n > 0 {
		m.Purged.Add(float64(n))
	}
}

// ObserveList records the duration of a listing. Call with time.Now() at the start.
func (m *Metrics) ObserveList(start time.Time) {
	if m != nil {
		m.ListDuration.Observe(time.Since(start).Seconds())
	}
}
