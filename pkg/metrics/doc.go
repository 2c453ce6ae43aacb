/*
Package metrics provides Prometheus metrics collection and exposition for the
AQEA extractor's master and worker processes.

The package defines and registers every metric using the Prometheus client
library, giving observability into coordination state, conversion throughput,
and HTTP latency. Metrics are exposed over the same HTTP server as the rest
of the master's API, at /metrics, for scraping by a Prometheus server.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories               │          │
	│  │                                              │          │
	│  │  Coordination: work units, workers by status │          │
	│  │  Throughput: entries processed, heartbeats  │          │
	│  │  Latency: HTTP, store upsert, allocator     │          │
	│  │  Errors: soft errors by kind                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

# Core Components

Metrics: package-level prometheus.Collector variables, registered in init().

Collector: periodically samples the Coordination Store (work units, worker
liveness) on a 15s ticker and republishes the snapshot as gauges — the same
ticker-driven sampling idiom used for every background loop in this project.

Timer: a small helper wrapping time.Since, used to time the worker's store
upserts (aqea_store_upsert_duration_seconds). The allocator-lookup and
HTTP-request histograms are registered but nothing observes them.

HealthChecker: tracks per-component health (e.g. "store",
"coordination_store") independent of Prometheus, backing HealthHandler,
ReadyHandler and LivenessHandler. The master's HTTP server does not mount
these handlers; it answers /api/health with its own handler.

# Metric Reference

aqea_work_units_total{status}:
  - Type: Gauge
  - Description: number of work units currently in each state
  - Example: aqea_work_units_total{status="processing"} 4

aqea_workers_total{status}:
  - Type: Gauge
  - Description: number of registered workers currently in each state
  - Example: aqea_workers_total{status="working"} 6

aqea_entries_processed_total:
  - Type: Counter
  - Description: cumulative AQEA entries converted and flushed to the store
  - Example: aqea_entries_processed_total 48213

aqea_heartbeats_total{worker_id}:
  - Type: Counter
  - Description: heartbeats received, by worker
  - Example: aqea_heartbeats_total{worker_id="worker-03"} 512

aqea_http_request_duration_seconds{method, path}:
  - Type: Histogram
  - Description: master HTTP API request latency
  - Buckets: default Prometheus buckets

aqea_store_upsert_duration_seconds:
  - Type: Histogram
  - Description: entry store batch upsert latency

aqea_allocator_lookup_duration_seconds:
  - Type: Histogram
  - Description: address allocator lookup/allocate latency

aqea_soft_errors_total{kind}:
  - Type: Counter
  - Description: soft (non-fatal) errors, by kind (§7 error taxonomy)

# Usage

Recording a gauge directly:

	metrics.WorkUnitsTotal.WithLabelValues("processing").Set(4)

Timing an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AllocatorLookupDuration)
	// ... perform the lookup ...

Running the periodic collector against a live coordination store:

	collector := metrics.NewCollector(coordStore)
	collector.Start()
	defer collector.Stop()

Serving the registry:

	mux.Handle("/metrics", metrics.Handler())

# Design Notes

Metric names are flat and domain-specific rather than generic, matching how
this project's reference codebase names its own metrics per-service rather
than with a shared prefix scheme. Label cardinality is kept low deliberately:
worker_id appears only on the heartbeat counter, where the number of workers
in any deployment is small and bounded, never on a histogram.
*/
package metrics
