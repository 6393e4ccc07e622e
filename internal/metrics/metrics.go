package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	storeOps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of collection operations including lock wait.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"collection", "op", "result"},
	)

	lockTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "store",
			Name:      "lock_timeouts_total",
			Help:      "Collection lock acquisitions that exceeded the wait budget.",
		},
		[]string{"collection", "mode"},
	)

	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Request gate decisions by zone and action.",
		},
		[]string{"zone", "action"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Sign-in and registration attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		storeOps,
		lockTimeouts,
		gateDecisions,
		authAttempts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			// Render the error here so the recorded status is the one sent.
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// ObserveStoreOp records a collection operation.
func ObserveStoreOp(collection, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOps.WithLabelValues(collection, op, result).Observe(time.Since(start).Seconds())
}

// RecordLockTimeout counts a lock wait that hit its deadline.
func RecordLockTimeout(collection, mode string) {
	lockTimeouts.WithLabelValues(collection, mode).Inc()
}

// RecordGateDecision counts a gate decision.
func RecordGateDecision(zone, action string) {
	gateDecisions.WithLabelValues(zone, action).Inc()
}

// RecordAuthAttempt counts an authentication attempt.
func RecordAuthAttempt(method, outcome string) {
	authAttempts.WithLabelValues(method, outcome).Inc()
}
