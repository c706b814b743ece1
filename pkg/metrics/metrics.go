// Package metrics exposes the Prometheus collectors for the inbound
// pipeline: per-stage latency, and outcome counters for dedupe, session and
// guard decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComponentLatency measures how long each pipeline stage takes per
	// inbound message. Labels: component (e.g. "dedupe", "session",
	// "guards", "state_selector", "response_generator", "master_decider",
	// "sanitize", "outbound", "audit"), outcome ("ok", "error", "fallback").
	ComponentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "otto_gateway",
		Subsystem: "pipeline",
		Name:      "component_latency_seconds",
		Help:      "Per-stage latency of the inbound webhook pipeline, in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"component", "outcome"})

	// DedupeDecisions counts mark-if-new outcomes. Labels: namespace
	// ("inbound", "outbound"), result ("new", "duplicate").
	DedupeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otto_gateway",
		Subsystem: "dedupe",
		Name:      "decisions_total",
		Help:      "Total dedupe mark-if-new decisions by namespace and result",
	}, []string{"namespace", "result"})

	// SessionPersistResults counts session store writes. Labels: method
	// ("save", "compare_and_swap"), outcome ("ok", "conflict", "error").
	SessionPersistResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otto_gateway",
		Subsystem: "session",
		Name:      "persist_total",
		Help:      "Total session persistence attempts by method and outcome",
	}, []string{"method", "outcome"})

	// GuardRejections counts abuse-guard rejections. Labels: reason
	// ("flood", "spam", "intent_capacity").
	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otto_gateway",
		Subsystem: "guards",
		Name:      "rejections_total",
		Help:      "Total abuse guard rejections by reason",
	}, []string{"reason"})

	// AdvisorFallbacks counts when an advisor's deterministic fallback was
	// used instead of a trusted LLM result. Labels: component
	// ("state_selector", "response_generator", "master_decider").
	AdvisorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otto_gateway",
		Subsystem: "advisors",
		Name:      "fallbacks_total",
		Help:      "Total advisor fallback invocations by component",
	}, []string{"component"})

	// AuditChainRetries counts compare-and-swap retries on the user audit
	// hash chain. Labels: outcome ("retried", "exhausted").
	AuditChainRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otto_gateway",
		Subsystem: "audit",
		Name:      "chain_retries_total",
		Help:      "Total user audit chain compare-and-swap retries by outcome",
	}, []string{"outcome"})
)

// ObserveComponentLatency records durationSec for component with outcome.
func ObserveComponentLatency(component, outcome string, durationSec float64) {
	ComponentLatency.WithLabelValues(component, outcome).Observe(durationSec)
}
