// Package metrics holds the Prometheus instruments for the conversation
// pipeline. Handlers are exposed on /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glowdesk",
		Subsystem: "dispatch",
		Name:      "routing_decisions_total",
		Help:      "Turns routed, labeled by the leaf agent chosen.",
	}, []string{"agent"})

	ClarificationTurns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glowdesk",
		Subsystem: "dispatch",
		Name:      "clarification_turns_total",
		Help:      "Turns answered with a clarification instead of an agent.",
	})

	RedirectedTurns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glowdesk",
		Subsystem: "dispatch",
		Name:      "redirected_turns_total",
		Help:      "Routing misses corrected by a support redirect.",
	})

	TurnErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glowdesk",
		Subsystem: "dispatch",
		Name:      "turn_errors_total",
		Help:      "Turns that failed with an error before producing events.",
	})

	TranscriptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glowdesk",
		Subsystem: "dispatch",
		Name:      "transcript_failures_total",
		Help:      "Best-effort transcript writes that failed.",
	})
)
