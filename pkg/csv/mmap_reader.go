package csv

import (
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/log"
)

// MmapReader exposes a file's contents as a byte slice, backed by a
// memory map for large files and by a fully-buffered read for small
// ones or when mmap isn't usable (empty files, mmap failures).
type MmapReader struct {
	file    *os.File
	mapping mmap.MMap // non-nil when backed by a real mmap
	content []byte    // buffered content, or a view into mapping
	size    int64
}

// OpenMmapReader opens path, using mmap when config.UseMmap is set and
// the file size reaches config.MmapThreshold; otherwise it reads the
// file fully into memory. An mmap failure is logged and falls back to
// a buffered read rather than failing the import.
func OpenMmapReader(path string, config ImportConfig) (*MmapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "opening file %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "reading file metadata")
	}
	size := info.Size()

	if config.UseMmap && size >= config.MmapThreshold && size > 0 {
		if r, err := tryMmap(f, size); err == nil {
			return r, nil
		} else {
			log.Logger.Warn().Err(err).Str("path", path).Msg("mmap failed, falling back to buffered read")
			// tryMmap closes f on failure, so reopen it for the buffered read.
			if f, err = os.Open(path); err != nil {
				return nil, engineerr.Wrap(engineerr.KindStorage, err, "reopening file %s", path)
			}
		}
	}

	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "reading file %s", path)
	}
	return &MmapReader{content: content, size: size}, nil
}

// OpenForcedMmap opens path and always uses mmap, for callers (or
// tests) that require the mmap code path specifically.
func OpenForcedMmap(path string) (*MmapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "opening file %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "reading file metadata")
	}
	return tryMmap(f, info.Size())
}

func tryMmap(f *os.File, size int64) (*MmapReader, error) {
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "mmap failed")
	}
	return &MmapReader{file: f, mapping: m, content: []byte(m), size: size}, nil
}

// Bytes returns the file's full content.
func (r *MmapReader) Bytes() []byte {
	return r.content
}

// Len returns the file size in bytes.
func (r *MmapReader) Len() int64 {
	return r.size
}

// IsEmpty reports whether the file has no content.
func (r *MmapReader) IsEmpty() bool {
	return r.size == 0
}

// IsMmap reports whether this reader is backed by a real memory map.
func (r *MmapReader) IsMmap() bool {
	return r.mapping != nil
}

// Close unmaps the file (if mmap-backed) and closes the underlying
// file handle.
func (r *MmapReader) Close() error {
	if r.mapping != nil {
		if err := r.mapping.Unmap(); err != nil {
			r.file.Close()
			return engineerr.Wrap(engineerr.KindStorage, err, "unmapping file")
		}
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *MmapReader) String() string {
	return fmt.Sprintf("MmapReader{size=%d, mmap=%t}", r.size, r.IsMmap())
}
