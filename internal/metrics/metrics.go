// Package metrics exposes Prometheus collectors for the rule engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rule_engine"

// Metrics tracks rule engine activity.
//
// Metrics:
//   - rule_engine_rules_created_total: rules created, by outcome
//   - rule_engine_rules_combined_total: combinations, by operator and outcome
//   - rule_engine_evaluations_total: evaluations, by result
//   - rule_engine_evaluation_duration_seconds: evaluation latency including the store lookup
//   - rule_engine_http_requests_total: HTTP requests, by route and status
type Metrics struct {
	registry *prometheus.Registry

	rulesCreated       *prometheus.CounterVec
	rulesCombined      *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		rulesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_created_total",
				Help:      "Total number of create rule requests",
			},
			[]string{"outcome"},
		),

		rulesCombined: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_combined_total",
				Help:      "Total number of combine rules requests",
			},
			[]string{"operator", "outcome"},
		),

		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"result"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule evaluation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
	}

	m.registry.MustRegister(
		m.rulesCreated,
		m.rulesCombined,
		m.evaluations,
		m.evaluationDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCreate counts a create rule request.
func (m *Metrics) RecordCreate(outcome string) {
	if m == nil {
		return
	}
	m.rulesCreated.WithLabelValues(outcome).Inc()
}

// RecordCombine counts a combine rules request.
func (m *Metrics) RecordCombine(operator, outcome string) {
	if m == nil {
		return
	}
	m.rulesCombined.WithLabelValues(operator, outcome).Inc()
}

// RecordEvaluation counts an evaluation and observes its duration. result is
// "true", "false" or "error".
func (m *Metrics) RecordEvaluation(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

// RecordHTTPRequest counts a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
