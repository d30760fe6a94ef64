package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Route search metrics
	RouteSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_route_searches_total",
			Help: "Total number of route searches",
		},
		[]string{"status"},
	)

	RouteSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mintclub_route_search_duration_seconds",
		Help:    "Route search duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	RouteCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mintclub_route_candidates",
		Help:    "Number of candidates evaluated per route search",
		Buckets: []float64{4, 8, 16, 24, 36, 48, 64},
	})

	QuoteCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_quote_calls_total",
			Help: "Total number of on-chain quote calls",
		},
		[]string{"version", "status"},
	)

	// Execution metrics
	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_executions_total",
			Help: "Total number of executed operations by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mintclub_execution_duration_seconds",
			Help:    "Time from simulation to confirmed receipt",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"kind"},
	)

	Approvals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_approvals_total",
			Help: "Approval checks by outcome (skipped, submitted, failed)",
		},
		[]string{"status"},
	)

	// RPC metrics
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_rpc_requests_total",
			Help: "JSON-RPC requests by method and outcome",
		},
		[]string{"method", "status"},
	)

	RPCRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mintclub_rpc_retries_total",
		Help: "Total number of retried JSON-RPC requests",
	})

	// HTTP API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mintclub_api_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
