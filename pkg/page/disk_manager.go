package page

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cuemby/ruzudb/pkg/engineerr"
)

// Range is a contiguous span of pages allocated together, used by the
// multi-page codec to store values larger than a single page.
type Range struct {
	Start    ID
	NumPages uint32
}

// ByteCapacity returns the total number of bytes the range can hold.
func (r Range) ByteCapacity() int64 {
	return int64(r.NumPages) * int64(Size)
}

// DiskManager owns a single database file and hands out page-aligned
// reads, writes and allocations against it. All page indices are
// relative to this one file; FileID on an ID is otherwise unused today.
type DiskManager struct {
	file        *os.File
	mu          sync.Mutex
	nextPageIdx atomic.Uint32
}

// Open opens (creating if necessary) the file at path and seeds the
// next-allocation counter from its current length.
func Open(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	dm := &DiskManager{file: f}
	numPages := uint32(divCeil(info.Size(), Size))
	dm.nextPageIdx.Store(numPages)
	return dm, nil
}

func divCeil(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ReadPage reads the page at id. Reading past the current end of file
// returns a zeroed page rather than an error, matching the semantics
// of a lazily-extended sparse file.
func (dm *DiskManager) ReadPage(id ID) (*Page, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	p := New(id)
	_, err := dm.file.ReadAt(p.Data[:], id.Offset())
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return p, nil
		}
		return nil, err
	}
	return p, nil
}

// WritePage writes p's data to its own ID's offset.
func (dm *DiskManager) WritePage(p *Page) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	_, err := dm.file.WriteAt(p.Data[:], p.ID.Offset())
	return err
}

// AllocatePage reserves and returns the next unused page ID, extending
// the file to cover it.
func (dm *DiskManager) AllocatePage() (ID, error) {
	r, err := dm.AllocatePageRange(1)
	if err != nil {
		return ID{}, err
	}
	return r.Start, nil
}

// AllocatePageRange reserves numPages contiguous pages, extending the
// file to cover the whole range, and returns the range's first ID.
func (dm *DiskManager) AllocatePageRange(numPages uint32) (Range, error) {
	if numPages == 0 {
		return Range{}, engineerr.New(engineerr.KindValidation, "cannot allocate a page range of 0 pages")
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	startIdx := dm.nextPageIdx.Add(numPages) - numPages
	start := Main(startIdx)
	newLen := (int64(startIdx) + int64(numPages)) * int64(Size)
	if err := dm.file.Truncate(newLen); err != nil {
		return Range{}, err
	}
	return Range{Start: start, NumPages: numPages}, nil
}

// Sync flushes the underlying file to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Sync()
}

// FileSize returns the current length of the backing file in bytes.
func (dm *DiskManager) FileSize() (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	info, err := dm.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Close()
}
