package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and dispatch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	outcomesProcessedTotal *prometheus.CounterVec
	queueEntriesGenerated  *prometheus.CounterVec
	lockContentionTotal    prometheus.Counter
	locksReapedTotal       prometheus.Counter
	integrityViolations    prometheus.Counter
	dialInflight           prometheus.Gauge
	dialDuration           prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dial_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		outcomesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "outcomes_processed_total",
				Help:      "Total number of dial attempt outcomes processed by classification.",
			},
			[]string{"outcome"},
		),
		queueEntriesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "queue_entries_generated_total",
				Help:      "Total number of queue entries produced per campaign.",
			},
			[]string{"campaign"},
		),
		lockContentionTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "lock_contention_total",
				Help:      "Total number of lock acquisitions lost to another owner or to ineligibility.",
			},
		),
		locksReapedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "locks_reaped_total",
				Help:      "Total number of stale contact locks force-released by the reaper.",
			},
		),
		integrityViolations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dial_engine",
				Name:      "integrity_violations_total",
				Help:      "Total number of suppressed contacts that reached dispatch despite generator filtering.",
			},
		),
		dialInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dial_engine",
				Name:      "dial_inflight",
				Help:      "Current number of in-flight dial attempts.",
			},
		),
		dialDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dial_engine",
				Name:      "dial_duration_seconds",
				Help:      "Telephony gateway dial duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.outcomesProcessedTotal,
		m.queueEntriesGenerated,
		m.lockContentionTotal,
		m.locksReapedTotal,
		m.integrityViolations,
		m.dialInflight,
		m.dialDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncOutcomeProcessed(outcome string) {
	if m == nil {
		return
	}
	label := strings.ToLower(strings.TrimSpace(outcome))
	if label == "" {
		label = "unknown"
	}
	m.outcomesProcessedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) AddQueueEntriesGenerated(campaignID string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.queueEntriesGenerated.WithLabelValues(strings.TrimSpace(campaignID)).Add(float64(count))
}

func (m *Metrics) IncLockContention() {
	if m == nil {
		return
	}
	m.lockContentionTotal.Inc()
}

func (m *Metrics) AddLocksReaped(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.locksReapedTotal.Add(float64(count))
}

func (m *Metrics) IncIntegrityViolation() {
	if m == nil {
		return
	}
	m.integrityViolations.Inc()
}

func (m *Metrics) IncDialInFlight() {
	if m == nil {
		return
	}
	m.dialInflight.Inc()
}

func (m *Metrics) DecDialInFlight() {
	if m == nil {
		return
	}
	m.dialInflight.Dec()
}

func (m *Metrics) ObserveDialDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dialDuration.Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
