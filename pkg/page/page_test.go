package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageIDCreation(t *testing.T) {
	id := Main(5)
	assert.Equal(t, uint32(0), id.FileID)
	assert.Equal(t, uint32(5), id.PageIdx)
}

func TestPageIDOffset(t *testing.T) {
	id := Main(3)
	assert.Equal(t, int64(3*Size), id.Offset())
}

func TestPageIDNext(t *testing.T) {
	id := Main(3)
	assert.Equal(t, Main(4), id.Next())
}

func TestPageIDIsHeader(t *testing.T) {
	assert.True(t, Main(0).IsHeader())
	assert.False(t, Main(1).IsHeader())
}

func TestPageChecksumRoundTrip(t *testing.T) {
	p := New(Main(1))
	copy(p.Data[:], []byte("hello ruzudb"))
	sum := p.Checksum()
	assert.True(t, p.VerifyChecksum(sum))

	p.Data[0] ^= 0xFF
	assert.False(t, p.VerifyChecksum(sum))
}
