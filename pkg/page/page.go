// Package page implements the fixed-size page abstraction and on-disk
// I/O that every higher-level storage package in ruzudb builds on.
package page

import (
	"fmt"
	"hash/crc32"
)

// Size is the fixed page size in bytes (4KB).
const Size = 4096

// SizeLog2 is Size expressed as a power of two (2^12 = 4096).
const SizeLog2 = 12

// ID uniquely identifies a page: which file it lives in (reserved for
// future multi-file support; always 0 today) and its index within that
// file.
type ID struct {
	FileID  uint32
	PageIdx uint32
}

// Main builds an ID in the primary (and currently only) database file.
func Main(pageIdx uint32) ID {
	return ID{FileID: 0, PageIdx: pageIdx}
}

// Offset returns the byte offset of this page within its file.
func (id ID) Offset() int64 {
	return int64(id.PageIdx) * int64(Size)
}

// Next returns the ID of the following page in the same file.
func (id ID) Next() ID {
	return ID{FileID: id.FileID, PageIdx: id.PageIdx + 1}
}

// IsHeader reports whether this is page 0 of its file.
func (id ID) IsHeader() bool {
	return id.PageIdx == 0
}

func (id ID) String() string {
	return fmt.Sprintf("Page(%d/%d)", id.FileID, id.PageIdx)
}

// Page is a fixed-size block of raw bytes addressed by ID.
type Page struct {
	ID   ID
	Data [Size]byte
}

// New returns a zeroed page with the given ID.
func New(id ID) *Page {
	return &Page{ID: id}
}

// FromData wraps existing bytes as a Page, copying them in.
func FromData(id ID, data [Size]byte) *Page {
	return &Page{ID: id, Data: data}
}

// Checksum computes the CRC32 checksum of the page's raw bytes.
func (p *Page) Checksum() uint32 {
	return crc32.ChecksumIEEE(p.Data[:])
}

// VerifyChecksum reports whether expected matches the page's checksum.
func (p *Page) VerifyChecksum(expected uint32) bool {
	return p.Checksum() == expected
}
