// Package metrics provides Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// MarketDataRequests counts upstream market data calls by operation and outcome.
	MarketDataRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_market_data_requests_total",
		Help: "Upstream market data requests",
	}, []string{"operation", "outcome"})

	// MarketDataLatency tracks upstream market data latency.
	MarketDataLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_market_data_latency_seconds",
		Help:    "Upstream market data latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// PriceCacheLookups counts price cache reads by result (hit, miss, error).
	PriceCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_price_cache_lookups_total",
		Help: "Price cache lookups",
	}, []string{"kind", "result"})

	// Valuations counts engine runs by kind (positions, chart) and outcome.
	Valuations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_valuations_total",
		Help: "Portfolio valuation runs",
	}, []string{"kind", "outcome"})

	// ReplayedTransactions observes how many transactions a valuation replayed.
	ReplayedTransactions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_replayed_transactions",
		Help:    "Transactions replayed per valuation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// IndexPriceFetches counts scheduled benchmark price fetches by outcome.
	IndexPriceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_index_price_fetches_total",
		Help: "Scheduled index price fetches",
	}, []string{"outcome"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns a Gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Use the route pattern for the path label to avoid high cardinality.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Outcome maps an error to a metrics label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
