package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the license module: issuance outcomes,
// activation outcomes by denial reason, and critical path durations.
type Metrics struct {
	LicensesIssued   prometheus.Counter
	DuplicateEvents  prometheus.Counter
	UnknownPlans     prometheus.Counter
	Activations      prometheus.Counter
	ActivationDenied *prometheus.CounterVec
	IssueDuration    prometheus.Histogram
	ValidateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all license module metrics registered.
func New() *Metrics {
	return &Metrics{
		LicensesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_licenses_issued_total",
			Help: "Total number of licenses issued",
		}),
		DuplicateEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_duplicate_events_total",
			Help: "Total purchase events short-circuited as redeliveries",
		}),
		UnknownPlans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_unknown_plan_total",
			Help: "Total purchase events carrying an unrecognized plan tag",
		}),
		Activations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_activations_total",
			Help: "Total successful device activations (new slots only)",
		}),
		ActivationDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_activation_denied_total",
			Help: "Total denied validation attempts by reason",
		}, []string{"reason"}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keygate_issue_duration_seconds",
			Help:    "Duration of purchase event handling",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keygate_validate_duration_seconds",
			Help:    "Duration of license validation (app startup critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementIssued records a successful license issuance.
func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.LicensesIssued.Inc()
	}
}

// IncrementDuplicateEvent records a redelivered purchase event.
func (m *Metrics) IncrementDuplicateEvent() {
	if m != nil {
		m.DuplicateEvents.Inc()
	}
}

// IncrementUnknownPlan records a purchase event with an unrecognized plan tag.
func (m *Metrics) IncrementUnknownPlan() {
	if m != nil {
		m.UnknownPlans.Inc()
	}
}

// IncrementActivation records a newly consumed activation slot.
func (m *Metrics) IncrementActivation() {
	if m != nil {
		m.Activations.Inc()
	}
}

// IncrementDenied records a denied validation attempt.
func (m *Metrics) IncrementDenied(reason string) {
	if m != nil {
		m.ActivationDenied.WithLabelValues(reason).Inc()
	}
}

// ObserveIssue records the duration of a purchase event handling pass.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	if m != nil {
		m.IssueDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveValidate records the duration of a validation pass.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveValidate(start time.Time) {
	if m != nil {
		m.ValidateDuration.Observe(time.Since(start).Seconds())
	}
}
