// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the tooldrive engine.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ToolBuckets defines histogram buckets for tool invocations, from 10ms to 60s.
var ToolBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tooldrive_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tooldrive_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// RunsInFlight tracks runs currently executing, by mode.
	RunsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tooldrive_runs_in_flight",
			Help: "Runs currently executing",
		},
		[]string{"mode"},
	)

	// RunsTotal counts finished runs by terminal status.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_runs_total",
			Help: "Finished runs",
		},
		[]string{"status"},
	)

	// RunIterations records the number of backend calls per run.
	RunIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tooldrive_run_iterations",
			Help:    "Backend calls per run",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50},
		},
	)

	// ProviderRequestsTotal counts requests sent to model backends.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records backend provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tooldrive_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ProviderRetriesTotal counts retried backend calls by error type.
	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_provider_retries_total",
			Help: "Provider retries",
		},
		[]string{"provider", "reason"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolDuration records tool dispatch duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tooldrive_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: ToolBuckets,
		},
		[]string{"tool_name"},
	)

	// ToolRateLimitRejectedTotal counts tool calls rejected by the per-tool rate limiter.
	ToolRateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooldrive_tool_ratelimit_rejected_total",
			Help: "Tool rate limit rejections",
		},
		[]string{"tool_name"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		RunsInFlight,
		RunsTotal,
		RunIterations,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ProviderRetriesTotal,
		ToolExecutionsTotal,
		ToolDuration,
		ToolRateLimitRejectedTotal,
	)
}
