// Package metrics exposes Prometheus counters for the agent loop and
// tool dispatch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TurnsTotal counts submitted user turns by channel.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Name:      "turns_total",
		Help:      "User turns submitted to the agent.",
	}, []string{"channel"})

	// TurnErrors counts turns that ended with a transport error.
	TurnErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Name:      "turn_errors_total",
		Help:      "Turns that failed with a model transport error.",
	}, []string{"channel"})

	// ModelCalls counts model invocations by outcome.
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Name:      "model_calls_total",
		Help:      "Model API invocations.",
	}, []string{"outcome"})

	// ToolCalls counts tool dispatches by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Name:      "tool_calls_total",
		Help:      "Tool dispatches.",
	}, []string{"tool", "outcome"})

	// ToolDuration observes tool execution time.
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apex",
		Name:      "tool_duration_seconds",
		Help:      "Tool execution duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"tool"})

	// RoundsPerTurn observes how many model rounds each turn took.
	RoundsPerTurn = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "apex",
		Name:      "rounds_per_turn",
		Help:      "Model rounds needed to finish one user turn.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
