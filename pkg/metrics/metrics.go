package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Buffer pool metrics
	BufferPoolHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_buffer_pool_hits_total",
			Help: "Total number of buffer pool pin() calls served from a resident frame",
		},
	)

	BufferPoolMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_buffer_pool_misses_total",
			Help: "Total number of buffer pool pin() calls that required a disk read",
		},
	)

	BufferPoolEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_buffer_pool_evictions_total",
			Help: "Total number of frames evicted to make room for a new page",
		},
	)

	BufferPoolPinnedFrames = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruzudb_buffer_pool_pinned_frames",
			Help: "Current number of pinned frames",
		},
	)

	BufferPoolDirtyFrames = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruzudb_buffer_pool_dirty_frames",
			Help: "Current number of dirty frames awaiting flush",
		},
	)

	// WAL metrics
	WALAppends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_wal_appends_total",
			Help: "Total number of records appended to the write-ahead log",
		},
	)

	WALSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruzudb_wal_sync_duration_seconds",
			Help:    "Time taken by WAL sync (flush + fsync) calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruzudb_checkpoint_duration_seconds",
			Help:    "Time taken to run a full checkpoint",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CSV ingestion metrics
	CSVRowsImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruzudb_csv_rows_imported_total",
			Help: "Total number of rows successfully imported by table",
		},
		[]string{"table"},
	)

	CSVRowsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruzudb_csv_rows_failed_total",
			Help: "Total number of rows that failed to import by table",
		},
		[]string{"table"},
	)

	CSVImportThroughput = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ruzudb_csv_import_throughput_rows_per_second",
			Help: "Smoothed rows/second throughput of the most recent import, by table",
		},
		[]string{"table"},
	)

	// Row-iterator execution metrics
	RowsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruzudb_rows_emitted_total",
			Help: "Total number of rows emitted by a row-iterator operator",
		},
		[]string{"operator"},
	)
)

func init() {
	prometheus.MustRegister(BufferPoolHits)
	prometheus.MustRegister(BufferPoolMisses)
	prometheus.MustRegister(BufferPoolEvictions)
	prometheus.MustRegister(BufferPoolPinnedFrames)
	prometheus.MustRegister(BufferPoolDirtyFrames)

	prometheus.MustRegister(WALAppends)
	prometheus.MustRegister(WALSyncDuration)
	prometheus.MustRegister(CheckpointDuration)

	prometheus.MustRegister(CSVRowsImported)
	prometheus.MustRegister(CSVRowsFailed)
	prometheus.MustRegister(CSVImportThroughput)

	prometheus.MustRegister(RowsEmitted)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
