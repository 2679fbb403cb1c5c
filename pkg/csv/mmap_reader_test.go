package csv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapReaderBufferedForSmallFile(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n")
	r, err := OpenMmapReader(path, DefaultImportConfig())
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.IsMmap())
	assert.Equal(t, "a,b\n1,2\n", string(r.Bytes()))
}

func TestMmapReaderForcedMmap(t *testing.T) {
	contents := strings.Repeat("a,b\n1,2\n", 100)
	path := writeTempCSV(t, contents)

	r, err := OpenForcedMmap(path)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsMmap())
	assert.Equal(t, contents, string(r.Bytes()))
	assert.Equal(t, int64(len(contents)), r.Len())
}

func TestMmapReaderUsesMmapAboveThreshold(t *testing.T) {
	contents := strings.Repeat("x", 2048)
	path := writeTempCSV(t, contents)

	cfg := DefaultImportConfig()
	cfg.UseMmap = true
	cfg.MmapThreshold = 1024

	r, err := OpenMmapReader(path, cfg)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsMmap())
}

func TestMmapReaderIsEmpty(t *testing.T) {
	path := writeTempCSV(t, "")
	r, err := OpenMmapReader(path, DefaultImportConfig())
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsEmpty())
}
