// Package metrics holds the Prometheus collectors gqlboot exports on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gqlboot_operations_total",
		Help: "GraphQL operations issued through the client, by kind and outcome.",
	}, []string{"kind", "outcome"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gqlboot_operation_duration_seconds",
		Help:    "Time spent in the link chain per operation.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"kind"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gqlboot_cache_lookups_total",
		Help: "Result cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	GraphQLErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gqlboot_graphql_errors_total",
		Help: "GraphQL-level errors observed in responses.",
	})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gqlboot_upstream_requests_total",
		Help: "HTTP requests sent to the GraphQL endpoint.",
	}, []string{"code", "method"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gqlboot_upstream_request_duration_seconds",
		Help:    "Round-trip time of HTTP requests to the GraphQL endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// InstrumentRoundTripper wraps next so every upstream round trip is counted
// and timed.
func InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(UpstreamRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(UpstreamRequestDuration, next))
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
