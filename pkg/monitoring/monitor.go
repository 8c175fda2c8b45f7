package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// CompletionCounter 新写入的完成记录数，tier 取值 class/module/course
	CompletionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_completions_total",
			Help: "Completion records created, by hierarchy tier",
		},
		[]string{"tier"},
	)

	PointsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_points_awarded_total",
			Help: "Total points awarded to learners",
		},
	)

	PartialPropagations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_partial_propagations_total",
			Help: "Class completions whose module/course cascade failed",
		},
	)

	ReorderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hierarchy_reorder_failures_total",
			Help: "Reorder batches rejected by the database",
		},
		[]string{"level"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			CompletionCounter,
			PointsAwarded,
			PartialPropagations,
			ReorderFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
