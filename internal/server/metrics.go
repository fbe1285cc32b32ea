package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agbru/memprof/internal/metrics"
	"github.com/agbru/memprof/internal/profiler"
)

const namespace = "memprof"

// Metrics owns a dedicated Prometheus registry so that several servers, or
// tests, never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	activeRequests  prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	systemTotal    prometheus.Gauge
	systemUsed     prometheus.Gauge
	resident       prometheus.Gauge
	virtual        prometheus.Gauge
	pressure       prometheus.Gauge
	pageFaults     prometheus.Gauge
	snapshotsTotal prometheus.Counter
}

// NewMetrics creates the HTTP and snapshot collectors plus the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_requests",
			Help: "Number of HTTP requests currently being served.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_total",
			Help: "HTTP requests served, by path and status code.",
		}, []string{"path", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		systemTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "system_total_bytes",
			Help: "Host memory size at the latest snapshot.",
		}),
		systemUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "system_used_bytes",
			Help: "Host memory in use at the latest snapshot.",
		}),
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_resident_bytes",
			Help: "Resident set size of the profiled process.",
		}),
		virtual: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_virtual_bytes",
			Help: "Virtual size of the profiled process.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "memory_pressure_ratio",
			Help: "Used over total host memory at the latest snapshot.",
		}),
		pageFaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_page_faults",
			Help: "Cumulative page faults of the profiled process.",
		}),
		snapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshots_total",
			Help: "Snapshots observed since start.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeRequests, m.requestsTotal, m.requestDuration,
		m.systemTotal, m.systemUsed, m.resident, m.virtual, m.pressure, m.pageFaults,
		m.snapshotsTotal,
	)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg, ErrorHandling: promhttp.ContinueOnError})
	return m
}

// IncrementActiveRequests marks the start of a request.
func (m *Metrics) IncrementActiveRequests() { m.activeRequests.Inc() }

// DecrementActiveRequests marks the end of a request.
func (m *Metrics) DecrementActiveRequests() { m.activeRequests.Dec() }

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(path string, code int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveSnapshot updates the memory gauges. Zero-filled snapshots only
// advance the counter.
func (m *Metrics) ObserveSnapshot(s metrics.Snapshot) {
	m.snapshotsTotal.Inc()
	if s.IsZero() {
		return
	}
	m.systemTotal.Set(float64(s.TotalMemory))
	m.systemUsed.Set(float64(s.UsedMemory))
	m.resident.Set(float64(s.ResidentSize))
	m.virtual.Set(float64(s.VirtualSize))
	m.pressure.Set(s.MemoryPressure())
	m.pageFaults.Set(float64(s.PageFaults))
}

// BindProfiler registers collectors evaluated at scrape time against p and
// subscribes the memory gauges to its snapshots.
func (m *Metrics) BindProfiler(p *profiler.Profiler) {
	p.OnSnapshot(m.ObserveSnapshot)
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "performance_alerts_total",
			Help: "Usage jumps above the performance alert threshold.",
		}, func() float64 { return float64(p.Counters().Alerts) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "capture_failures_total",
			Help: "Captures recorded as zero-filled snapshots.",
		}, func() float64 { return float64(p.Counters().CaptureFailures) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_snapshots_total",
			Help: "Snapshots dropped by the internal consumer queue.",
		}, func() float64 { return float64(p.Counters().Dropped) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "performance_score",
			Help: "Performance score of the retained history, 0 to 1.",
		}, func() float64 { return p.AnalyzeHistory(context.Background()).Score }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "leak_confidence",
			Help: "Confidence of the latest leak suspicion, 0 to 1.",
		}, func() float64 {
			report, _ := p.LastLeakReport()
			return report.Confidence
		}),
	)
}

// WritePrometheus serves the registry in the Prometheus exposition format.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}
