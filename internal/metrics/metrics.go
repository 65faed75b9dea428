// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herald_api_tool_call_duration_seconds",
			Help:    "Total time taken for tool calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100, 150, 200},
		},
		[]string{"tool"},
	)

	ToolCallCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_api_tool_call_count_total",
			Help: "Total number of tool calls dispatched",
		},
		[]string{"tool", "outcome"},
	)

	CapabilityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_api_capability_error_count",
			Help: "Capability failures by error kind",
		},
		[]string{"capability", "kind"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_api_sessions_created_total",
			Help: "Session actors constructed",
		},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herald_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
