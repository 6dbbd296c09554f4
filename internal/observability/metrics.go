package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the orchestration core.
type Metrics struct {
	TurnsStarted   prometheus.Counter
	TurnsCompleted *prometheus.CounterVec // outcome: ok, safety, lm_fatal, storage_error, cancelled
	TurnDuration   prometheus.Histogram

	LMAttempts prometheus.Counter
	LMRetries  prometheus.Counter

	ToolInvocations *prometheus.CounterVec // tool, outcome: ok, validation_error, execution_error
	FuseFirings     prometheus.Counter

	SanitizerSuppressions *prometheus.CounterVec // kind: leakage, glyph

	SummariesWritten prometheus.Counter
}

// NewMetrics creates and registers the core metrics on the given registry.
// Pass prometheus.DefaultRegisterer in production; a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aetheria_turns_started_total",
			Help: "Turns started.",
		}),
		TurnsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aetheria_turns_completed_total",
			Help: "Turns completed by outcome.",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aetheria_turn_duration_seconds",
			Help:    "Wall time per turn.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 11),
		}),
		LMAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aetheria_lm_attempts_total",
			Help: "LM generate attempts, including retries.",
		}),
		LMRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aetheria_lm_retries_total",
			Help: "LM retries after transient failures.",
		}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aetheria_tool_invocations_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		FuseFirings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aetheria_fuse_firings_total",
			Help: "Server-synthesised tool calls injected by the fuse.",
		}),
		SanitizerSuppressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aetheria_sanitizer_suppressions_total",
			Help: "Stream sanitiser suppressions by kind.",
		}, []string{"kind"}),
		SummariesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aetheria_memory_summaries_total",
			Help: "Auto-summariser summaries written.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.TurnsStarted, m.TurnsCompleted, m.TurnDuration,
			m.LMAttempts, m.LMRetries,
			m.ToolInvocations, m.FuseFirings,
			m.SanitizerSuppressions, m.SummariesWritten,
		)
	}
	return m
}

// NewNopMetrics creates unregistered metrics for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
