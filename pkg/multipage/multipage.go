// Package multipage implements a simple length-prefixed codec for
// storing a byte blob larger than one page across a contiguous
// page.Range, used to persist catalog, table and relationship data.
package multipage

import (
	"encoding/binary"

	"github.com/cuemby/ruzudb/pkg/bufferpool"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/page"
)

const lengthPrefixSize = 4

// Write serializes data into r as [u32 LE length][data][zero padding to
// the end of the range]. It returns KindStorage if data (plus the
// length prefix) does not fit in r's byte capacity.
func Write(pool *bufferpool.BufferPool, r page.Range, data []byte) error {
	need := int64(len(data)) + lengthPrefixSize
	if need > r.ByteCapacity() {
		return engineerr.New(engineerr.KindStorage,
			"data of %d bytes (+%d byte header) does not fit in range of %d bytes",
			len(data), lengthPrefixSize, r.ByteCapacity())
	}

	buf := make([]byte, r.ByteCapacity())
	binary.LittleEndian.PutUint32(buf[0:lengthPrefixSize], uint32(len(data)))
	copy(buf[lengthPrefixSize:], data)

	for i := uint32(0); i < r.NumPages; i++ {
		id := page.ID{FileID: r.Start.FileID, PageIdx: r.Start.PageIdx + i}
		h, err := pool.FetchPage(id)
		if err != nil {
			return err
		}
		copy(h.Data(), buf[int64(i)*page.Size:(int64(i)+1)*page.Size])
		h.MarkDirty()
		h.Unpin()
	}
	return nil
}

// Read reconstructs the data blob previously stored in r via Write. It
// returns KindStorage if the embedded length is inconsistent with the
// range's capacity, which indicates corrupted data. A range that was
// never written holds zeros and reads back as an empty blob.
func Read(pool *bufferpool.BufferPool, r page.Range) ([]byte, error) {
	raw := make([]byte, r.ByteCapacity())
	for i := uint32(0); i < r.NumPages; i++ {
		id := page.ID{FileID: r.Start.FileID, PageIdx: r.Start.PageIdx + i}
		h, err := pool.FetchPage(id)
		if err != nil {
			return nil, err
		}
		copy(raw[int64(i)*page.Size:(int64(i)+1)*page.Size], h.Data())
		h.Unpin()
	}

	length := binary.LittleEndian.Uint32(raw[0:lengthPrefixSize])
	if int64(length)+lengthPrefixSize > int64(len(raw)) {
		return nil, engineerr.New(engineerr.KindStorage,
			"multi-page data corrupted: declared length %d exceeds range capacity %d", length, len(raw))
	}
	out := make([]byte, length)
	copy(out, raw[lengthPrefixSize:lengthPrefixSize+int64(length)])
	return out, nil
}
