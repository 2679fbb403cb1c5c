package wal

import (
	"sync/atomic"

	"github.com/cuemby/ruzudb/pkg/metrics"
)

// Flusher is the subset of bufferpool.BufferPool a Checkpointer needs,
// kept as an interface here so this package doesn't import bufferpool.
type Flusher interface {
	FlushAll() error
}

// Checkpointer sequences a checkpoint: record it in the log, sync the
// log, flush every dirty page, then truncate the log since everything
// in it is now durable in the page store.
type Checkpointer struct {
	nextCheckpointID atomic.Uint64
}

// NewCheckpointer creates a checkpointer starting at checkpoint ID 0.
func NewCheckpointer() *Checkpointer {
	return &Checkpointer{}
}

// Checkpoint runs one checkpoint cycle and returns its ID.
func (c *Checkpointer) Checkpoint(pool Flusher, writer *Writer) (uint64, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CheckpointDuration)

	id := c.nextCheckpointID.Add(1) - 1

	if _, err := writer.WriteRecord(Record{RecordType: Checkpoint}); err != nil {
		return 0, err
	}
	if err := writer.Sync(); err != nil {
		return 0, err
	}
	if err := pool.FlushAll(); err != nil {
		return 0, err
	}
	if err := writer.Truncate(); err != nil {
		return 0, err
	}
	return id, nil
}
