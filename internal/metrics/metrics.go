package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors used across the service.
type Metrics struct {
	NLURequests    *prometheus.CounterVec
	NLULatency     *prometheus.HistogramVec
	IntentOutcomes *prometheus.CounterVec
	LedgerMutation *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	Errors         *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NLURequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nlu_requests_total",
			Help:      "Remote intent extraction calls by provider and result.",
		}, []string{"provider", "result"}),
		NLULatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nlu_latency_seconds",
			Help:      "Latency of remote intent extraction calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"provider", "status"}),
		IntentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_outcomes_total",
			Help:      "Interpreted commands by source and result.",
		}, []string{"source", "result"}),
		LedgerMutation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Inventory mutations by action and result.",
		}, []string{"action", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component.",
		}, []string{"component"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.NLURequests,
			m.NLULatency,
			m.IntentOutcomes,
			m.LedgerMutation,
			m.HTTPRequests,
			m.Errors,
		)
	}
	return m
}

// NewNop returns unregistered collectors.
func NewNop() *Metrics {
	return New("test", nil)
}
