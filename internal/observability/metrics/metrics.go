// Package metrics exposes Prometheus instruments for the HTTP layer and
// the payment reconciliation pipeline.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentEvents   *prometheus.CounterVec
	duplicateEvents *prometheus.CounterVec
	receiptsIssued  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		paymentEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "billora_payment_events_total",
			Help: "Gateway payment events applied, by gateway and delivery source.",
		}, []string{"gateway", "source"}),
		duplicateEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "billora_payment_duplicate_events_total",
			Help: "Redelivered payment events detected as duplicates.",
		}, []string{"gateway", "source"}),
		receiptsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "billora_receipts_issued_total",
			Help: "Receipts generated on invoice completion.",
		}),
	}
}

func (m *Metrics) RecordPaymentEvent(gateway, source string, duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.duplicateEvents.WithLabelValues(gateway, source).Inc()
		return
	}
	m.paymentEvents.WithLabelValues(gateway, source).Inc()
}

func (m *Metrics) RecordReceiptIssued() {
	if m == nil {
		return
	}
	m.receiptsIssued.Inc()
}

// HTTPMetrics instruments request volume and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "billora_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billora_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records per-request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requests.WithLabelValues(route, method, status).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
