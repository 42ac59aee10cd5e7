package chain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Proxy metrics
	proxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_proxy_requests_total",
			Help: "Total number of chain-data proxy requests by endpoint",
		},
		[]string{"endpoint"},
	)

	proxyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_proxy_errors_total",
			Help: "Total number of chain-data proxy errors by endpoint",
		},
		[]string{"endpoint"},
	)

	proxyRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_proxy_retries_total",
			Help: "Total number of chain-data proxy request retries by endpoint",
		},
		[]string{"endpoint"},
	)

	proxyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_indexer_proxy_request_duration_seconds",
			Help:    "Duration of chain-data proxy requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func ProxyRequestInc(endpoint string) {
	proxyRequests.WithLabelValues(endpoint).Inc()
}

func ProxyErrorInc(endpoint string) {
	proxyErrors.WithLabelValues(endpoint).Inc()
}

func ProxyRetryInc(endpoint string) {
	proxyRetries.WithLabelValues(endpoint).Inc()
}

func ProxyRequestDuration(endpoint string, duration time.Duration) {
	proxyDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
