/*
Package metrics provides Prometheus metrics collection and exposition for ruzudb.

Metrics are package-level prometheus.Collector values registered at init time,
covering the three subsystems whose performance characteristics matter most to
an embedder: the buffer pool (hit rate, eviction pressure), the write-ahead log
(append rate, sync latency, checkpoint duration), and CSV ingestion (rows
imported/failed, throughput). Row-iterator operators additionally report rows
emitted per operator kind.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │  BufferPool*: hits, misses, evictions,      │          │
	│  │               pinned/dirty frame gauges     │          │
	│  │  WAL*: append count, sync latency           │          │
	│  │  Checkpoint*: checkpoint duration            │          │
	│  │  CSV*: rows imported/failed, throughput      │          │
	│  │  RowsEmitted: per-operator row counts        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Handler(): promhttp.Handler()             │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.CheckpointDuration)

Embedders that want a scrape endpoint mount metrics.Handler() themselves; this
package never starts an HTTP server on its own.
*/
package metrics
