// Package wal implements ruzudb's write-ahead log: a framed, optionally
// checksummed append-only record stream used for crash recovery via
// two-phase (analyze, then apply) replay.
package wal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Magic identifies a ruzudb WAL file.
var Magic = [8]byte{'R', 'U', 'Z', 'U', 'W', 'A', 'L', 0}

// Version is the current WAL format version.
const Version uint32 = 1

const headerSize = 8 + 4 + 16 + 1 // magic + version + uuid + checksums flag

// RecordType identifies the kind of change a Record describes. Values
// are explicit, not iota-assigned, and leave gaps for future record
// kinds — do not renumber them.
type RecordType uint8

const (
	BeginTransaction RecordType = 1
	Commit           RecordType = 2
	Abort            RecordType = 3
	TableInsertion   RecordType = 30
	NodeDeletion     RecordType = 31
	NodeUpdate       RecordType = 32
	RelDeletion      RecordType = 33
	RelInsertion     RecordType = 36
	Checkpoint       RecordType = 254
)

// Payload carries the fields relevant to a given RecordType; unused
// fields are left zero. TableID names the node or relationship table
// a structural record applies to, resolved against the catalog by the
// replayer (WAL records reference tables by ID, not name, since a
// table can be renamed between write and replay).
type Payload struct {
	TableID   uint32
	Columns   []string
	Rows      [][]types.Value
	Src       uint64
	Dst       uint64
	Props     []types.Value
	RowIndex  int
	NewValues []types.Value
}

// Record is one entry in the log.
type Record struct {
	RecordType    RecordType
	TransactionID uint64
	LSN           uint64
	Payload       Payload
}

// Header is the fixed 29-byte prologue written once at WAL file
// creation. DatabaseID must match the owning data file's
// dbheader.Header.DatabaseID: it is how a reader tells a WAL file
// belonging to one database directory apart from a WAL file that
// wandered in from another.
type Header struct {
	Magic           [8]byte
	Version         uint32
	DatabaseID      uuid.UUID
	EnableChecksums bool
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	copy(buf[12:28], h.DatabaseID[:])
	if h.EnableChecksums {
		buf[28] = 1
	}
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) != headerSize {
		return h, engineerr.New(engineerr.KindWAL, "wal header truncated: got %d bytes, want %d", len(buf), headerSize)
	}
	copy(h.Magic[:], buf[0:8])
	if h.Magic != Magic {
		return h, engineerr.New(engineerr.KindInvalidDatabaseFile, "wal file has wrong magic bytes")
	}
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	if h.Version > Version {
		return h, engineerr.New(engineerr.KindUnsupportedVersion, "wal version %d newer than supported %d", h.Version, Version)
	}
	copy(h.DatabaseID[:], buf[12:28])
	h.EnableChecksums = buf[28] != 0
	return h, nil
}

// Writer appends framed records to a WAL file, assigning each a
// monotonically increasing LSN.
type Writer struct {
	mu              sync.Mutex
	file            *os.File
	bw              *bufio.Writer
	header          Header
	enableChecksums bool
	nextLSN         atomic.Uint64
}

// NewWriter opens (or creates) the WAL file at path. A fresh file gets
// a new Header written immediately, stamped with databaseID so it can
// later be matched against the data file it belongs to; an existing
// file is appended to as-is, trusting its on-disk header, except that
// its stored DatabaseID is checked against databaseID when the latter
// is non-nil. Pass uuid.Nil to skip that check, e.g. when the caller
// has no data file of its own to match against.
func NewWriter(path string, enableChecksums bool, databaseID uuid.UUID) (*Writer, error) {
	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindWAL, err, "opening wal file %s", path)
	}

	w := &Writer{file: f, bw: bufio.NewWriter(f), enableChecksums: enableChecksums}
	if isNew {
		w.header = Header{Magic: Magic, Version: Version, DatabaseID: databaseID, EnableChecksums: enableChecksums}
		if w.header.DatabaseID == uuid.Nil {
			w.header.DatabaseID = uuid.New()
		}
		if _, err := f.Write(encodeHeader(w.header)); err != nil {
			f.Close()
			return nil, engineerr.Wrap(engineerr.KindWAL, err, "writing wal header")
		}
	} else {
		hdrBuf := make([]byte, headerSize)
		if _, err := f.ReadAt(hdrBuf, 0); err != nil {
			f.Close()
			return nil, engineerr.Wrap(engineerr.KindWAL, err, "reading existing wal header")
		}
		hdr, err := decodeHeader(hdrBuf)
		if err != nil {
			f.Close()
			return nil, err
		}
		if databaseID != uuid.Nil && hdr.DatabaseID != databaseID {
			f.Close()
			return nil, engineerr.New(engineerr.KindInvalidDatabaseFile,
				"wal file %s belongs to database %s, not %s", path, hdr.DatabaseID, databaseID)
		}
		w.header = hdr
		w.enableChecksums = hdr.EnableChecksums
	}
	w.nextLSN.Store(1)
	return w, nil
}

// NextLSN reserves and returns the next log sequence number without
// writing a record. WriteRecord calls this internally for every record
// it appends.
func (w *Writer) NextLSN() uint64 {
	return w.nextLSN.Add(1) - 1
}

// WriteRecord assigns r an LSN, serializes it, and appends the framed
// bytes to the log.
func (w *Writer) WriteRecord(r Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lsn := w.NextLSN()
	r.LSN = lsn

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(r); err != nil {
		return 0, engineerr.Wrap(engineerr.KindWAL, err, "encoding wal record")
	}

	var frame bytes.Buffer
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(body.Len()))
	frame.Write(lenPrefix[:])
	frame.Write(body.Bytes())
	if w.enableChecksums {
		var sum [4]byte
		binary.LittleEndian.PutUint32(sum[:], crc32.ChecksumIEEE(body.Bytes()))
		frame.Write(sum[:])
	}

	if _, err := w.bw.Write(frame.Bytes()); err != nil {
		return 0, engineerr.Wrap(engineerr.KindWAL, err, "writing wal record")
	}
	metrics.WALAppends.Inc()
	return lsn, nil
}

// Sync flushes buffered writes and fsyncs the underlying file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WALSyncDuration)
	if err := w.bw.Flush(); err != nil {
		return engineerr.Wrap(engineerr.KindWAL, err, "flushing wal writer")
	}
	return w.file.Sync()
}

// Truncate discards every record after the header, used once a
// checkpoint has made them unnecessary for recovery, and resets LSN
// allocation back to 1.
func (w *Writer) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.bw.Flush(); err != nil {
		return engineerr.Wrap(engineerr.KindWAL, err, "flushing wal writer before truncate")
	}
	if err := w.file.Truncate(headerSize); err != nil {
		return engineerr.Wrap(engineerr.KindWAL, err, "truncating wal file")
	}
	if _, err := w.file.Seek(headerSize, io.SeekStart); err != nil {
		return engineerr.Wrap(engineerr.KindWAL, err, "seeking wal file after truncate")
	}
	w.bw = bufio.NewWriter(w.file)
	w.nextLSN.Store(1)
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Reader reads framed records back out of a WAL file in order.
type Reader struct {
	file   *os.File
	br     *bufio.Reader
	Header Header
}

// NewReader opens path for sequential replay, validating its header.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindWAL, err, "opening wal file %s", path)
	}
	hdrBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, hdrBuf); err != nil {
		f.Close()
		return nil, engineerr.Wrap(engineerr.KindWAL, err, "reading wal header")
	}
	hdr, err := decodeHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{file: f, br: bufio.NewReader(f), Header: hdr}, nil
}

// ReadRecord returns the next record, or ok=false at a clean end of
// file (a partial trailing frame, from a crash mid-write, is also
// treated as end of file rather than an error).
func (r *Reader) ReadRecord() (Record, bool, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.br, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, false, nil
		}
		return Record{}, false, engineerr.Wrap(engineerr.KindWAL, err, "reading wal record length")
	}
	bodyLen := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r.br, body); err != nil {
		return Record{}, false, nil
	}

	if r.Header.EnableChecksums {
		var sumBuf [4]byte
		if _, err := io.ReadFull(r.br, sumBuf[:]); err != nil {
			return Record{}, false, nil
		}
		want := binary.LittleEndian.Uint32(sumBuf[:])
		got := crc32.ChecksumIEEE(body)
		if want != got {
			return Record{}, false, engineerr.New(engineerr.KindChecksum, "wal record checksum mismatch")
		}
	}

	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&rec); err != nil {
		return Record{}, false, engineerr.Wrap(engineerr.KindWAL, err, "decoding wal record")
	}
	return rec, true, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReplayResult summarizes what Replayer.Analyze found.
type ReplayResult struct {
	RecordsReplayed        int
	TransactionsCommitted  int
	TransactionsRolledBack int
	CommittedTxs           map[uint64]bool
}

// Replayer performs the two-phase WAL recovery algorithm: Analyze
// determines which transactions actually committed, then
// RecordsToApply filters the structural records down to only those
// belonging to a committed transaction.
type Replayer struct {
	activeTxs        map[uint64]bool
	committedTxs     map[uint64]bool
	committedRecords []Record
}

// NewReplayer creates an empty replayer.
func NewReplayer() *Replayer {
	return &Replayer{
		activeTxs:    make(map[uint64]bool),
		committedTxs: make(map[uint64]bool),
	}
}

// Analyze walks every record in r, classifying transactions as active,
// committed, or (implicitly, by never being committed) rolled back.
// Non-transaction-control records are buffered regardless of their
// transaction's eventual fate; RecordsToApply filters them afterward.
func (rp *Replayer) Analyze(r *Reader) (ReplayResult, error) {
	rolledBack := 0
	for {
		rec, ok, err := r.ReadRecord()
		if err != nil {
			return ReplayResult{}, err
		}
		if !ok {
			break
		}
		switch rec.RecordType {
		case BeginTransaction:
			rp.activeTxs[rec.TransactionID] = true
		case Commit:
			delete(rp.activeTxs, rec.TransactionID)
			rp.committedTxs[rec.TransactionID] = true
		case Abort:
			if rp.activeTxs[rec.TransactionID] {
				rolledBack++
			}
			delete(rp.activeTxs, rec.TransactionID)
		default:
			rp.committedRecords = append(rp.committedRecords, rec)
		}
	}
	return ReplayResult{
		TransactionsCommitted:  len(rp.committedTxs),
		TransactionsRolledBack: rolledBack,
		CommittedTxs:           rp.committedTxs,
	}, nil
}

// RecordsToApply returns the buffered structural records whose
// transaction actually committed, in original log order.
func (rp *Replayer) RecordsToApply() []Record {
	out := make([]Record, 0, len(rp.committedRecords))
	for _, rec := range rp.committedRecords {
		if rp.committedTxs[rec.TransactionID] {
			out = append(out, rec)
		}
	}
	return out
}
