// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus collectors. HTTP series are labelled by
// method, route template and status; requests that matched no route share
// the "unmatched" label so scanners cannot blow up cardinality. Assistance
// calls get their own outcome counter because they are the expensive path.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "documind",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// Assistance calls to a remote model can take tens of seconds.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "documind",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "documind",
			Name:      "http_requests_inflight",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	// Document bodies are capped at 1 MiB by the router.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "documind",
			Name:      "http_response_size_bytes",
			Help:      "Size of HTTP responses in bytes.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7), // 256B..1MiB
		},
		[]string{"method", "route"},
	)

	assistOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "documind",
			Name:      "assistance_requests_total",
			Help:      "Assistance requests by outcome (generated, replayed, rejected, failed).",
		},
		[]string{"outcome"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "documind",
			Name:      "rate_limited_total",
			Help:      "Requests denied by the rate limiter.",
		},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, assistOutcomes, rateLimited)
}

// assistanceOutcome classifies a finished POST .../assistance request.
func assistanceOutcome(status int, replayed bool) string {
	switch {
	case status == http.StatusCreated && replayed:
		return "replayed"
	case status == http.StatusCreated:
		return "generated"
	case status >= 500:
		return "failed"
	default:
		return "rejected"
	}
}

// Metrics records the HTTP series for every request and the assistance
// outcome for POST /documents/:id/assistance. Mount promhttp.Handler()
// separately to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		status := c.Writer.Status()

		httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}

		if method == http.MethodPost && strings.HasSuffix(route, "/documents/:id/assistance") {
			replayed := c.Writer.Header().Get("Idempotency-Replayed") == "true"
			assistOutcomes.WithLabelValues(assistanceOutcome(status, replayed)).Inc()
		}
	}
}
