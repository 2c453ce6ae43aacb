package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkUnitsTotal tracks work units by status (pending/assigned/processing/
	// completed/failed), sampled from the Coordination Store by Collector.
	WorkUnitsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aqea_work_units_total",
			Help: "Total number of work units by status",
		},
		[]string{"status"},
	)

	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aqea_workers_total",
			Help: "Total number of registered workers by status",
		},
		[]string{"status"},
	)

	EntriesProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aqea_entries_processed_total",
			Help: "Total number of AQEA entries converted and flushed",
		},
	)

	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqea_heartbeats_total",
			Help: "Total number of heartbeats received by worker id",
		},
		[]string{"worker_id"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aqea_http_request_duration_seconds",
			Help:    "Master HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StoreUpsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aqea_store_upsert_duration_seconds",
			Help:    "Time taken to upsert a batch of entries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AllocatorLookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aqea_allocator_lookup_duration_seconds",
			Help:    "Time taken to allocate or resolve an element id in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SoftErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqea_soft_errors_total",
			Help: "Total number of soft (non-fatal) errors by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(WorkUnitsTotal)
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(EntriesProcessedTotal)
	prometheus.MustRegister(HeartbeatsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(StoreUpsertDuration)
	prometheus.MustRegister(AllocatorLookupDuration)
	prometheus.MustRegister(SoftErrorsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
