package csv

import "github.com/cuemby/ruzudb/pkg/engineerr"

// DefaultStreamingBatchSize is the row count per batch for a streaming
// import (100,000 rows).
const DefaultStreamingBatchSize = 100_000

// DefaultStreamingThreshold is the file size (bytes) at or above which
// streaming mode turns on automatically (100MB).
const DefaultStreamingThreshold = 100 * 1024 * 1024

// StreamingConfig controls memory-bounded streaming imports: CSV rows
// are loaded and flushed to storage in batches rather than all at
// once, bounding memory use regardless of file size.
type StreamingConfig struct {
	BatchSize          int
	BufferCapacity     int
	StreamingEnabled   bool
	StreamingThreshold int64
}

// DefaultStreamingConfig returns streaming enabled at 100,000 rows per
// batch, auto-triggered at or above a 100MB file size.
func DefaultStreamingConfig() StreamingConfig {
	return StreamingConfig{
		BatchSize:          DefaultStreamingBatchSize,
		BufferCapacity:     DefaultStreamingBatchSize,
		StreamingEnabled:   true,
		StreamingThreshold: DefaultStreamingThreshold,
	}
}

// DisabledStreamingConfig returns DefaultStreamingConfig with
// streaming turned off (legacy whole-file-in-memory mode).
func DisabledStreamingConfig() StreamingConfig {
	c := DefaultStreamingConfig()
	c.StreamingEnabled = false
	return c
}

const maxStreamingBatchSize = 10_000_000

// Validate reports whether the configuration's numeric fields are
// within supported ranges.
func (c StreamingConfig) Validate() error {
	if c.BatchSize <= 0 {
		return engineerr.New(engineerr.KindValidation, "streaming batch_size must be at least 1")
	}
	if c.BatchSize > maxStreamingBatchSize {
		return engineerr.New(engineerr.KindValidation, "streaming batch_size must be at most %d", maxStreamingBatchSize)
	}
	if c.BufferCapacity <= 0 {
		return engineerr.New(engineerr.KindValidation, "streaming buffer_capacity must be at least 1")
	}
	if c.StreamingThreshold <= 0 {
		return engineerr.New(engineerr.KindValidation, "streaming_threshold must be greater than 0")
	}
	return nil
}

// ShouldStream reports whether a file of the given size should use
// streaming mode under this configuration.
func (c StreamingConfig) ShouldStream(fileSize int64) bool {
	return c.StreamingEnabled && fileSize >= c.StreamingThreshold
}

// StreamingErrorKind discriminates StreamingError's variant.
type StreamingErrorKind int

const (
	StreamingBufferFull StreamingErrorKind = iota
	StreamingBatchWriteFailed
	StreamingInterrupted
	StreamingInvalidConfig
)

// StreamingError reports a failure specific to streaming import
// operations.
type StreamingError struct {
	Kind    StreamingErrorKind
	Message string // populated for BatchWriteFailed/InvalidConfig
}

func (e StreamingError) Error() string {
	switch e.Kind {
	case StreamingBufferFull:
		return "streaming buffer is full"
	case StreamingBatchWriteFailed:
		return "batch write failed: " + e.Message
	case StreamingInterrupted:
		return "streaming operation was interrupted"
	case StreamingInvalidConfig:
		return "invalid streaming config: " + e.Message
	default:
		return "streaming error"
	}
}
