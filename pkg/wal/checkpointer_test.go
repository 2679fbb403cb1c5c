package wal

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct{ flushed int }

func (f *fakeFlusher) FlushAll() error {
	f.flushed++
	return nil
}

func TestCheckpointSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 1})
	require.NoError(t, err)

	flusher := &fakeFlusher{}
	cp := NewCheckpointer()
	id, err := cp.Checkpoint(flusher, w)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, 1, flusher.flushed)

	// After checkpoint, lsn allocation should have restarted at 1.
	lsn, err := w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lsn)
}

func TestCheckpointIDsIncrease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)
	defer w.Close()

	flusher := &fakeFlusher{}
	cp := NewCheckpointer()
	id1, err := cp.Checkpoint(flusher, w)
	require.NoError(t, err)
	id2, err := cp.Checkpoint(flusher, w)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id1)
	assert.Equal(t, uint64(1), id2)
}
