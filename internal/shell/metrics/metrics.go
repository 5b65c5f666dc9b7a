// Package metrics provides Prometheus instrumentation for Village Lookup.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission decisions.
const (
	DecisionPassThrough = "pass_through"
	DecisionRejected    = "rejected"
	DecisionAccepted    = "accepted"
	DecisionError       = "error"
)

// Metrics provides observability for the submission path.
type Metrics struct {
	// Submissions by gate/validation outcome
	Submissions *prometheus.CounterVec

	// Validation errors by data element
	ValidationErrors *prometheus.CounterVec

	// Reference lookup latency by check kind
	CheckLatency *prometheus.HistogramVec

	// Upstream relay latency
	RelayLatency prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers all metrics on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers all metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "villagelookup_submissions_total",
			Help: "Tracker submissions by decision",
		}, []string{"decision"}), // decision: pass_through, rejected, accepted, error

		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "villagelookup_validation_errors_total",
			Help: "Validation errors by data element",
		}, []string{"field"}),

		CheckLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "villagelookup_reference_check_duration_seconds",
			Help:    "Duration of reference store checks by kind",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"check"}), // check: ward, village, classification

		RelayLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "villagelookup_relay_duration_seconds",
			Help:    "Duration of upstream tracker relays",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		gatherer: reg,
	}
}

// IncrementSubmission records a submission outcome.
func (m *Metrics) IncrementSubmission(decision string) {
	if m != nil {
		m.Submissions.WithLabelValues(decision).Inc()
	}
}

// IncrementValidationError records one failed check on field.
func (m *Metrics) IncrementValidationError(field string) {
	if m != nil {
		m.ValidationErrors.WithLabelValues(field).Inc()
	}
}

// ObserveCheckLatency records the duration of a reference check.
func (m *Metrics) ObserveCheckLatency(check string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
	}
}

// ObserveRelayLatency records the duration of an upstream relay.
func (m *Metrics) ObserveRelayLatency(d time.Duration) {
	if m != nil {
		m.RelayLatency.Observe(d.Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
