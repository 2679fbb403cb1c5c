// Package dbheader implements the database file header stored in page
// 0: the format version, the page ranges reserved for the catalog and
// table metadata, and a checksum guarding against partial writes.
package dbheader

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/cuemby/ruzudb/pkg/bufferpool"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/page"
)

// Magic identifies a ruzudb database file.
var Magic = [8]byte{'R', 'U', 'Z', 'U', 'D', 'B', 0, 0}

// CurrentVersion is the header format version new databases are
// created with.
const CurrentVersion uint32 = 2

// v1Version predates the relationship-metadata range: v1 headers
// decode with RelMetadataRange left at its zero value, which callers
// must treat as "allocate on first use" rather than a corrupted range.
const v1Version uint32 = 1

// Header describes the fixed page ranges a database reserves for its
// schema and table data, found at a well-known location (page 0) so
// Open can bootstrap everything else from it. DatabaseID is minted
// once at creation and never changes; it is the value a WAL file's
// own header must match for its records to be trusted as belonging to
// this data file.
type Header struct {
	Version          uint32
	DatabaseID       uuid.UUID
	CatalogRange     page.Range
	MetadataRange    page.Range
	RelMetadataRange page.Range
}

// body is the portion of Header that gets checksummed and persisted.
// Keeping it separate from Header lets new fields default to zero when
// decoding an older version's bytes, via gob's tolerant schema
// evolution, without Header itself needing an explicit migration step.
type body struct {
	Magic            [8]byte
	Version          uint32
	DatabaseID       uuid.UUID
	CatalogRange     page.Range
	MetadataRange    page.Range
	RelMetadataRange page.Range
}

// New builds a fresh header at CurrentVersion, minting a new random
// DatabaseID.
func New(catalogRange, metadataRange, relMetadataRange page.Range) Header {
	return Header{
		Version:          CurrentVersion,
		DatabaseID:       uuid.New(),
		CatalogRange:     catalogRange,
		MetadataRange:    metadataRange,
		RelMetadataRange: relMetadataRange,
	}
}

// Write encodes h into page 0 of pool, preceded by a length prefix and
// followed by a CRC32 checksum of the encoded bytes.
func Write(pool *bufferpool.BufferPool, h Header) error {
	b := body{
		Magic:            Magic,
		Version:          h.Version,
		DatabaseID:       h.DatabaseID,
		CatalogRange:     h.CatalogRange,
		MetadataRange:    h.MetadataRange,
		RelMetadataRange: h.RelMetadataRange,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return engineerr.Wrap(engineerr.KindStorage, err, "encoding database header")
	}
	bodyBytes := buf.Bytes()
	if len(bodyBytes)+8 > page.Size {
		return engineerr.New(engineerr.KindStorage, "database header body of %d bytes does not fit in one page", len(bodyBytes))
	}

	handle, err := pool.FetchPage(page.Main(0))
	if err != nil {
		return err
	}
	defer handle.Unpin()

	data := handle.Data()
	for i := range data {
		data[i] = 0
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(bodyBytes)))
	copy(data[4:], bodyBytes)
	binary.LittleEndian.PutUint32(data[4+len(bodyBytes):8+len(bodyBytes)], crc32.ChecksumIEEE(bodyBytes))
	handle.MarkDirty()
	return nil
}

// Read decodes the header from page 0. migrated reports whether the
// on-disk header predates CurrentVersion, in which case callers should
// allocate RelMetadataRange themselves rather than trust its (zero)
// decoded value, and should not treat the outdated version as
// corruption.
func Read(pool *bufferpool.BufferPool) (h Header, migrated bool, err error) {
	handle, err := pool.FetchPage(page.Main(0))
	if err != nil {
		return Header{}, false, err
	}
	defer handle.Unpin()

	data := handle.Data()
	length := binary.LittleEndian.Uint32(data[0:4])
	if int(length)+8 > len(data) {
		return Header{}, false, engineerr.New(engineerr.KindCorruptedDatabase, "database header declares invalid length %d", length)
	}
	bodyBytes := data[4 : 4+length]
	wantChecksum := binary.LittleEndian.Uint32(data[4+length : 8+length])
	if crc32.ChecksumIEEE(bodyBytes) != wantChecksum {
		return Header{}, false, engineerr.New(engineerr.KindChecksum, "database header checksum mismatch")
	}

	var b body
	if err := gob.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&b); err != nil {
		return Header{}, false, engineerr.Wrap(engineerr.KindCorruptedDatabase, err, "decoding database header")
	}
	if b.Magic != Magic {
		return Header{}, false, engineerr.New(engineerr.KindInvalidDatabaseFile, "not a ruzudb database file")
	}
	if b.Version > CurrentVersion {
		return Header{}, false, engineerr.New(engineerr.KindUnsupportedVersion, "database version %d newer than supported %d", b.Version, CurrentVersion)
	}

	h = Header{
		Version:          b.Version,
		DatabaseID:       b.DatabaseID,
		CatalogRange:     b.CatalogRange,
		MetadataRange:    b.MetadataRange,
		RelMetadataRange: b.RelMetadataRange,
	}
	return h, b.Version < CurrentVersion, nil
}
