package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserParseAllWithHeader(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	p := DefaultParser()

	records, err := p.ParseAll(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "2"}, records[0])
}

func TestParserHeadersReturnsFirstRow(t *testing.T) {
	path := writeTempCSV(t, "a,b,c\n1,2,3\n")
	p := DefaultParser()

	headers, err := p.Headers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, headers)
}

func TestParserHeadersErrorsWithoutHeaderConfigured(t *testing.T) {
	path := writeTempCSV(t, "1,2,3\n")
	cfg := DefaultImportConfig()
	cfg.HasHeader = false
	p := NewParser(cfg)

	_, err := p.Headers(path)
	assert.Error(t, err)
}

func TestParserCustomDelimiter(t *testing.T) {
	path := writeTempCSV(t, "a;b\n1;2\n")
	cfg := DefaultImportConfig()
	cfg.Delimiter = ';'
	p := NewParser(cfg)

	records, err := p.ParseAll(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"1", "2"}, records[0])
}

func TestParserIgnoresErrorsWhenConfigured(t *testing.T) {
	cfg := DefaultImportConfig()
	cfg.IgnoreErrors = true
	cfg.HasHeader = false
	p := NewParser(cfg)

	path := writeTempCSV(t, "1,2\n3,4,5\n6,7\n")
	records, err := p.ParseAll(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(records), 2)
}

func TestCountLines(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	count, err := CountLines(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestFileSize(t *testing.T) {
	contents := "a,b\n1,2\n"
	path := writeTempCSV(t, contents)
	size, err := FileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(contents)), size)
}
