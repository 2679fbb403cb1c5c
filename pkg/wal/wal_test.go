package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/types"
)

func corrupt(t *testing.T, path string, offset int64) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	var b [1]byte
	_, err = f.ReadAt(b[:], offset)
	require.NoError(t, err)
	b[0] ^= 0xFF
	_, err = f.WriteAt(b[:], offset)
	require.NoError(t, err)
}

func TestWriterCreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, true, uuid.Nil)
	require.NoError(t, err)
	firstID := w.header.DatabaseID
	require.NoError(t, w.Close())

	w2, err := NewWriter(path, true, uuid.Nil)
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, firstID, w2.header.DatabaseID, "reopening an existing wal must not rewrite its header")
}

func TestWriteAndReadRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, true, uuid.Nil)
	require.NoError(t, err)

	_, err = w.WriteRecord(Record{
		RecordType:    TableInsertion,
		TransactionID: 1,
		Payload: Payload{
			TableID: 7,
			Rows:    [][]types.Value{{types.NewInt64(1), types.NewString("Alice")}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.ReadRecord()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TableInsertion, rec.RecordType)
	assert.Equal(t, uint32(7), rec.Payload.TableID)

	_, ok, err = r.ReadRecord()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTruncateResetsFileAndLSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)

	lsn1, err := w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lsn1)

	require.NoError(t, w.Truncate())

	lsn2, err := w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lsn2, "lsn allocation restarts at 1 after truncate")
}

func TestReplayerCommittedTransactionIsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)

	_, _ = w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 1})
	_, _ = w.WriteRecord(Record{RecordType: TableInsertion, TransactionID: 1, Payload: Payload{TableID: 3}})
	_, _ = w.WriteRecord(Record{RecordType: Commit, TransactionID: 1})
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rp := NewReplayer()
	result, err := rp.Analyze(r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionsCommitted)

	toApply := rp.RecordsToApply()
	require.Len(t, toApply, 1)
	assert.Equal(t, TableInsertion, toApply[0].RecordType)
}

func TestReplayerAbortedTransactionIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)

	_, _ = w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 1})
	_, _ = w.WriteRecord(Record{RecordType: TableInsertion, TransactionID: 1})
	_, _ = w.WriteRecord(Record{RecordType: Abort, TransactionID: 1})
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rp := NewReplayer()
	result, err := rp.Analyze(r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionsRolledBack)
	assert.Empty(t, rp.RecordsToApply())
}

func TestReplayerUncommittedTrailingTransactionIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.Nil)
	require.NoError(t, err)

	_, _ = w.WriteRecord(Record{RecordType: BeginTransaction, TransactionID: 1})
	_, _ = w.WriteRecord(Record{RecordType: TableInsertion, TransactionID: 1})
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rp := NewReplayer()
	_, err = rp.Analyze(r)
	require.NoError(t, err)
	assert.Empty(t, rp.RecordsToApply(), "a transaction with no Commit record never applies, crash mid-transaction")
}

func TestReadRecordChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, true, uuid.Nil)
	require.NoError(t, err)
	_, err = w.WriteRecord(Record{RecordType: Checkpoint})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Corrupt one byte of the record body, after the header and length
	// prefix.
	corrupt(t, path, headerSize+6)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, _, err = r.ReadRecord()
	assert.Error(t, err)
}

func TestNewWriterStampsRequestedDatabaseID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	want := uuid.New()
	w, err := NewWriter(path, false, want)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, want, w.header.DatabaseID)
}

func TestNewWriterRejectsMismatchedDatabaseID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWriter(path, false, uuid.New())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewWriter(path, false, uuid.New())
	require.Error(t, err)
}

func TestNewWriterReopenAcceptsMatchingDatabaseID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	id := uuid.New()
	w, err := NewWriter(path, false, id)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := NewWriter(path, false, id)
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, id, w2.header.DatabaseID)
}
