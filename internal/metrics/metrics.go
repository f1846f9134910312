// Package metrics exposes Prometheus instrumentation for the webhook core.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WebhookEvents   *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillhut",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HandlerDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skillhut",
			Subsystem: "webhook",
			Name:      "handler_duration_seconds",
			Help:      "Time spent processing a webhook event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillhut",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skillhut",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordWebhookEvent counts one processed event.
func (m *Metrics) RecordWebhookEvent(kind string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(kind, outcome).Inc()
	m.HandlerDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// GinMiddleware instruments every route registered after it.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
