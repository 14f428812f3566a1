package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbound notification outcomes. Failures are the interesting
// series: they are the manual-follow-up queue.
type Metrics struct {
	Sent     prometheus.Counter
	Failures prometheus.Counter
}

// New creates and registers the notification metrics.
func New() *Metrics {
	return &Metrics{
		Sent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_notifications_sent_total",
			Help: "Total license notifications handed to the outbound channel",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_notification_failures_total",
			Help: "Total license notifications that failed to dispatch",
		}),
	}
}

// IncrementSent records a successful hand-off.
func (m *Metrics) IncrementSent() {
	if m != nil {
		m.Sent.Inc()
	}
}

// IncrementFailures records a failed dispatch.
func (m *Metrics) IncrementFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}
