package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts total HTTP requests
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request latency
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// httpRequestsInFlight tracks concurrent requests
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "antia",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Business metrics
var (
	// OrdersTotal counts order state transitions
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antia",
			Subsystem: "business",
			Name:      "orders_total",
			Help:      "Total number of order state transitions",
		},
		[]string{"status", "provider", "currency"},
	)

	// OrderAmount tracks settled order amounts
	OrderAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antia",
			Subsystem: "business",
			Name:      "order_amount_cents",
			Help:      "Settled order amounts in cents",
			Buckets:   prometheus.ExponentialBuckets(100, 5, 8), // 1 EUR to ~4k EUR
		},
		[]string{"provider", "currency"},
	)

	// WebhooksTotal counts gateway webhook deliveries by outcome
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antia",
			Subsystem: "business",
			Name:      "webhooks_total",
			Help:      "Total number of gateway webhook deliveries",
		},
		[]string{"provider", "outcome"}, // applied, duplicate, ignored, rejected
	)

	// OutboxPublishedTotal counts relay publish attempts
	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antia",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Total number of outbox publish attempts",
		},
		[]string{"event_type", "result"}, // published, failed
	)
)

// Database metrics
var (
	// DBQueryDuration measures database query latency
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antia",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table"},
	)

	// DBConnectionsTotal tracks database connections
	DBConnectionsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "antia",
			Subsystem: "db",
			Name:      "connections",
			Help:      "Number of database connections",
		},
		[]string{"state"}, // idle, in_use, max
	)
)

// Metrics returns Prometheus metrics middleware
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// RecordOrderTransition records an order state transition metric
func RecordOrderTransition(status, provider, currency string) {
	OrdersTotal.WithLabelValues(status, provider, currency).Inc()
}

// RecordOrderAmount records a settled order amount
func RecordOrderAmount(provider, currency string, amountCents int64) {
	OrderAmount.WithLabelValues(provider, currency).Observe(float64(amountCents))
}

// RecordWebhook records a gateway webhook delivery
func RecordWebhook(provider, outcome string) {
	WebhooksTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordOutboxPublish records an outbox relay publish attempt
func RecordOutboxPublish(eventType, result string) {
	OutboxPublishedTotal.WithLabelValues(eventType, result).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateDBConnections updates database connection metrics
func UpdateDBConnections(idle, inUse, max int32) {
	DBConnectionsTotal.WithLabelValues("idle").Set(float64(idle))
	DBConnectionsTotal.WithLabelValues("in_use").Set(float64(inUse))
	DBConnectionsTotal.WithLabelValues("max").Set(float64(max))
}
