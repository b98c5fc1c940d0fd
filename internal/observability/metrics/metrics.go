package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics tracks inbound request volume and latency.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// ReconciliationMetrics tracks the periodic billing reconciliation pass.
type ReconciliationMetrics struct {
	Passes           prometheus.Counter
	PassFailures     prometheus.Counter
	Expiring         prometheus.Counter
	Expired          prometheus.Counter
	OverdueFollowUps prometheus.Counter
	PassDuration     prometheus.Histogram
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "classbill_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classbill_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func NewReconciliationMetrics() *ReconciliationMetrics {
	return &ReconciliationMetrics{
		Passes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "classbill_reconciliation_passes_total",
			Help: "Completed reconciliation passes.",
		}),
		PassFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "classbill_reconciliation_pass_failures_total",
			Help: "Reconciliation passes that returned an error.",
		}),
		Expiring: promauto.NewCounter(prometheus.CounterOpts{
			Name: "classbill_reconciliation_expiring_total",
			Help: "Expiring-enrollment notifications emitted.",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "classbill_reconciliation_expired_total",
			Help: "Enrollments transitioned to expired.",
		}),
		OverdueFollowUps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "classbill_reconciliation_overdue_total",
			Help: "Overdue follow-up notifications emitted.",
		}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "classbill_reconciliation_pass_duration_seconds",
			Help:    "Wall time of a full reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// GinMiddleware records request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
