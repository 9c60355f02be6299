// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymdesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	planGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "generated_total",
			Help:      "Plans generated by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	planDaysWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "days_written_total",
			Help:      "Plan day rows inserted or updated.",
		},
		[]string{"kind"},
	)

	aiRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "retries_total",
			Help:      "AI requests retried, by HTTP status.",
		},
		[]string{"status"},
	)

	aiFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "fallbacks_total",
			Help:      "Static templates served because generation failed.",
		},
		[]string{"kind"},
	)

	membershipsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memberships",
			Name:      "expired_total",
			Help:      "Memberships moved to expired by the scheduler.",
		},
	)

	realtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Open notification websockets.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			planGenerations,
			planDaysWritten,
			aiRetries,
			aiFallbacks,
			membershipsExpired,
			realtimeClients,
		)
	})
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func IncPlanGenerated(kind, outcome string) {
	planGenerations.WithLabelValues(kind, outcome).Inc()
}

func AddPlanDaysWritten(kind string, n int64) {
	planDaysWritten.WithLabelValues(kind).Add(float64(n))
}

func IncAIRetry(status int) {
	aiRetries.WithLabelValues(strconv.Itoa(status)).Inc()
}

func IncAIFallback(kind string) {
	aiFallbacks.WithLabelValues(kind).Inc()
}

func AddMembershipsExpired(n int) {
	membershipsExpired.Add(float64(n))
}

func RealtimeClientConnected() { realtimeClients.Inc() }

func RealtimeClientDisconnected() { realtimeClients.Dec() }
