// Package monitoring exports mapping metrics to Prometheus and raises
// webhook alerts when the mapping service degrades.
package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "header_mapper"

// MetricsSnapshot holds the mapping activity seen since the previous snapshot.
type MetricsSnapshot struct {
	Requests   int     `json:"requests"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	Timeouts   int     `json:"timeouts"`
	Canceled   int     `json:"canceled"`
	FailRate   float64 `json:"fail_rate"`
	AvgLatency float64 `json:"avg_latency_secs"`

	Uploads       int `json:"uploads"`
	UploadsFailed int `json:"uploads_failed"`

	Window      time.Duration `json:"window"`
	CollectedAt time.Time     `json:"collected_at"`
}

// Collector records mapping and ingestion events. It implements the
// mapper's Observer and serves the Prometheus exposition format.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ingests  *prometheus.CounterVec
	rows     prometheus.Histogram

	mu      sync.Mutex
	window  MetricsSnapshot
	since   time.Time
	latency time.Duration
}

// NewCollector creates a Collector with its own registry, so tests and
// multiple servers in one process do not collide on registration.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_requests_total",
			Help:      "Mapping service round trips by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mapping_request_duration_seconds",
			Help:      "Duration of mapping service round trips.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"outcome"}),
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_files_total",
			Help:      "Uploaded files by format and result.",
		}, []string{"format", "result"}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingested_rows",
			Help:      "Data rows per successfully ingested file.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 6),
		}),
		since: time.Now(),
	}
	c.registry.MustRegister(c.requests, c.duration, c.ingests, c.rows)
	return c
}

// Observe records one mapping service round trip.
func (c *Collector) Observe(outcome string, elapsed time.Duration) {
	c.requests.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.window.Requests++
	c.latency += elapsed
	switch outcome {
	case "ok":
		c.window.Succeeded++
	case "canceled":
		c.window.Canceled++
	case "timeout":
		c.window.Timeouts++
		c.window.Failed++
	default:
		c.window.Failed++
	}
}

// ObserveIngest records one uploaded file.
func (c *Collector) ObserveIngest(format string, rows int, err error) {
	if format == "" {
		format = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ingests.WithLabelValues(format, result).Inc()
	if err == nil {
		c.rows.Observe(float64(rows))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.window.Uploads++
	if err != nil {
		c.window.UploadsFailed++
	}
}

// Collect returns the activity since the previous call and starts a new window.
func (c *Collector) Collect() *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	snap := c.window
	snap.Window = now.Sub(c.since)
	snap.CollectedAt = now.UTC()

	finished := snap.Succeeded + snap.Failed
	if finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Requests > 0 {
		snap.AvgLatency = c.latency.Seconds() / float64(snap.Requests)
	}

	c.window = MetricsSnapshot{}
	c.latency = 0
	c.since = now
	return &snap
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
