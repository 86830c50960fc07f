package telemetry

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskapp/internal/core/port"
)

const namespace = "taskapp"

var _ port.TaskMetrics = (*AppMetrics)(nil)

// AppMetrics is every Prometheus collector the service exports besides the
// Go runtime collector.
type AppMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	inFlight        prometheus.Gauge

	taskOperations *prometheus.CounterVec
	tasks          *prometheus.GaugeVec

	rateLimit *prometheus.CounterVec

	heapAlloc  prometheus.Gauge
	goroutines prometheus.Gauge
}

func NewAppMetrics(registry prometheus.Registerer) *AppMetrics {
	factory := promauto.With(registry)
	httpLabels := []string{"method", "route", "status"}

	return &AppMetrics{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, httpLabels),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route and status.",
		}, httpLabels),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		taskOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "operations_total",
			Help:      "Successful task operations by kind.",
		}, []string{"operation"}),
		tasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "stored",
			Help:      "Stored tasks by state (all, open, overdue).",
		}, []string{"state"}),
		rateLimit: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by route and outcome.",
		}, []string{"route", "key", "outcome"}),
		heapAlloc: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "heap_alloc_bytes",
			Help:      "Bytes of allocated heap objects at the last sample.",
		}),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "goroutines",
			Help:      "Goroutines at the last sample.",
		}),
	}
}

func (m *AppMetrics) RecordRequest(_ context.Context, method, route string, status int, elapsed time.Duration) {
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}

	m.requestDuration.With(labels).Observe(elapsed.Seconds())
	m.requestTotal.With(labels).Inc()
}

// TrackInFlight counts a request as in flight until the returned func runs.
func (m *AppMetrics) TrackInFlight() (done func()) {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

func (m *AppMetrics) RecordTaskOperation(_ context.Context, operation string) {
	m.taskOperations.WithLabelValues(operation).Inc()
}

func (m *AppMetrics) SetTaskGauges(stats port.TaskStats) {
	m.tasks.WithLabelValues("all").Set(float64(stats.Total))
	m.tasks.WithLabelValues("open").Set(float64(stats.Open))
	m.tasks.WithLabelValues("overdue").Set(float64(stats.Overdue))
}

func (m *AppMetrics) RecordRateLimitHit(_ context.Context, route, keyType string) {
	m.rateLimit.WithLabelValues(route, keyType, "rejected").Inc()
}

func (m *AppMetrics) RecordRateLimitAllowed(_ context.Context, route, keyType string) {
	m.rateLimit.WithLabelValues(route, keyType, "allowed").Inc()
}

// SampleSystem refreshes the process gauges.
func (m *AppMetrics) SampleSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.heapAlloc.Set(float64(ms.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}
