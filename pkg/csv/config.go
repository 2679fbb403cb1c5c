// Package csv implements bulk loading of node and relationship data
// from CSV files: configurable parsing, optional memory-mapped and
// parallel block-split reads, and progress reporting.
package csv

import (
	"fmt"
	"time"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/metrics"
)

// ImportConfig controls how a CSV file is parsed and loaded.
type ImportConfig struct {
	// Parsing options.
	Delimiter byte
	Quote     byte
	Escape    byte
	HasHeader bool
	SkipRows  int

	// Error handling.
	IgnoreErrors bool

	// Batching.
	BatchSize int

	// Parallelism.
	Parallel   bool
	NumThreads int // 0 = auto-detect from runtime.NumCPU
	BlockSize  int

	// I/O.
	UseMmap       bool
	MmapThreshold int64

	// Optimization.
	InternStrings bool
}

const (
	minBlockSize     = 64 * 1024
	maxBlockSize     = 16 * 1024 * 1024
	maxBatchSize     = 10_000_000
	minMmapThreshold = 1024 * 1024
)

// DefaultImportConfig returns the settings used unless a caller
// overrides them: comma-delimited, double-quoted, headered CSV,
// batched 2048 rows at a time, parallel parsing over 256KB blocks,
// and mmap-backed reads once a file exceeds 100MB.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Delimiter:     ',',
		Quote:         '"',
		Escape:        '"',
		HasHeader:     true,
		SkipRows:      0,
		IgnoreErrors:  false,
		BatchSize:     2048,
		Parallel:      true,
		NumThreads:    0,
		BlockSize:     256 * 1024,
		UseMmap:       true,
		MmapThreshold: 100 * 1024 * 1024,
		InternStrings: false,
	}
}

// Sequential returns DefaultImportConfig with parallel parsing disabled.
func Sequential() ImportConfig {
	c := DefaultImportConfig()
	c.Parallel = false
	return c
}

// Validate reports whether the configuration's numeric fields are
// within supported ranges.
func (c ImportConfig) Validate() error {
	if c.NumThreads < 0 {
		return engineerr.New(engineerr.KindValidation, "num_threads must not be negative (0 = auto-detect)")
	}
	if c.BlockSize < minBlockSize {
		return engineerr.New(engineerr.KindValidation, "block_size must be at least %d bytes", minBlockSize)
	}
	if c.BlockSize > maxBlockSize {
		return engineerr.New(engineerr.KindValidation, "block_size must be at most %d bytes", maxBlockSize)
	}
	if c.BatchSize <= 0 {
		return engineerr.New(engineerr.KindValidation, "batch_size must be at least 1")
	}
	if c.BatchSize > maxBatchSize {
		return engineerr.New(engineerr.KindValidation, "batch_size must be at most %d", maxBatchSize)
	}
	if c.MmapThreshold < minMmapThreshold {
		return engineerr.New(engineerr.KindValidation, "mmap_threshold must be at least %d bytes", minMmapThreshold)
	}
	return nil
}

// ImportError describes a single row that failed during import.
type ImportError struct {
	RowNumber uint64
	Column    string // empty when the error isn't column-specific
	Message   string
}

func (e ImportError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.RowNumber, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
}

// ImportProgress tracks row/byte counters and throughput for an
// in-flight import, with exponential smoothing for ETA estimates.
type ImportProgress struct {
	RowsProcessed    uint64
	RowsTotal        *uint64
	RowsFailed       uint64
	BytesRead        uint64
	Errors           []ImportError
	BatchesCompleted uint64

	startTime         time.Time
	lastUpdateTime    time.Time
	lastRowCount      uint64
	throughputSamples []float64
}

// NewImportProgress returns a zeroed, unstarted progress tracker.
func NewImportProgress() *ImportProgress {
	return &ImportProgress{}
}

// PercentComplete returns the completion fraction in [0,1], or
// ok=false when the total row count isn't known yet.
func (p *ImportProgress) PercentComplete() (float64, bool) {
	if p.RowsTotal == nil {
		return 0, false
	}
	if *p.RowsTotal == 0 {
		return 1.0, true
	}
	return float64(p.RowsProcessed) / float64(*p.RowsTotal), true
}

// AddError records a row failure.
func (p *ImportProgress) AddError(err ImportError) {
	p.Errors = append(p.Errors, err)
	p.RowsFailed++
}

// Start marks the beginning of the import, resetting timing state.
func (p *ImportProgress) Start() {
	now := time.Now()
	p.startTime = now
	p.lastUpdateTime = now
	p.lastRowCount = 0
	p.throughputSamples = nil
}

// Update records newly processed rows/bytes and samples instantaneous
// throughput for later smoothing.
func (p *ImportProgress) Update(rowsAdded, bytesAdded uint64) {
	p.RowsProcessed += rowsAdded
	p.BytesRead += bytesAdded

	if !p.lastUpdateTime.IsZero() {
		elapsed := time.Since(p.lastUpdateTime).Seconds()
		if elapsed > 0.001 {
			delta := p.RowsProcessed - p.lastRowCount
			sample := float64(delta) / elapsed
			p.throughputSamples = append(p.throughputSamples, sample)
			if len(p.throughputSamples) > 10 {
				p.throughputSamples = p.throughputSamples[1:]
			}
		}
	}
	p.lastUpdateTime = time.Now()
	p.lastRowCount = p.RowsProcessed
}

// CompleteBatch increments the completed-batch counter.
func (p *ImportProgress) CompleteBatch() {
	p.BatchesCompleted++
}

// Throughput returns the overall rows/second rate since Start, or
// ok=false if the import hasn't started.
func (p *ImportProgress) Throughput() (float64, bool) {
	if p.startTime.IsZero() {
		return 0, false
	}
	elapsed := time.Since(p.startTime).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	return float64(p.RowsProcessed) / elapsed, true
}

// SmoothedThroughput applies an exponential moving average (alpha=0.3)
// over recent throughput samples, falling back to Throughput when no
// samples have been recorded yet.
func (p *ImportProgress) SmoothedThroughput() (float64, bool) {
	if len(p.throughputSamples) == 0 {
		return p.Throughput()
	}
	const alpha = 0.3
	ema := p.throughputSamples[0]
	for _, sample := range p.throughputSamples[1:] {
		ema = alpha*sample + (1-alpha)*ema
	}
	return ema, true
}

// ETASeconds estimates remaining time using SmoothedThroughput and
// RowsTotal, or ok=false if either is unavailable.
func (p *ImportProgress) ETASeconds() (float64, bool) {
	if p.RowsTotal == nil {
		return 0, false
	}
	remaining := uint64(0)
	if *p.RowsTotal > p.RowsProcessed {
		remaining = *p.RowsTotal - p.RowsProcessed
	}
	throughput, ok := p.SmoothedThroughput()
	if !ok || throughput <= 0 {
		return 0, false
	}
	return float64(remaining) / throughput, true
}

// Elapsed returns the time since Start, or ok=false if not started.
func (p *ImportProgress) Elapsed() (time.Duration, bool) {
	if p.startTime.IsZero() {
		return 0, false
	}
	return time.Since(p.startTime), true
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	RowsImported   uint64
	RowsFailed     uint64
	BytesProcessed uint64
	Errors         []ImportError
}

// ResultFromProgress converts a finished ImportProgress into a result.
func ResultFromProgress(p *ImportProgress) ImportResult {
	return ImportResult{
		RowsImported:   p.RowsProcessed,
		RowsFailed:     p.RowsFailed,
		BytesProcessed: p.BytesRead,
		Errors:         p.Errors,
	}
}

// IsSuccess reports whether the import completed with no row errors.
func (r ImportResult) IsSuccess() bool {
	return len(r.Errors) == 0
}

// recordImportMetrics publishes a completed (or completing) import's row
// counts and smoothed throughput under the given table label.
func recordImportMetrics(table string, p *ImportProgress) {
	metrics.CSVRowsImported.WithLabelValues(table).Add(float64(p.RowsProcessed))
	metrics.CSVRowsFailed.WithLabelValues(table).Add(float64(p.RowsFailed))
	if throughput, ok := p.SmoothedThroughput(); ok {
		metrics.CSVImportThroughput.WithLabelValues(table).Set(throughput)
	}
}
