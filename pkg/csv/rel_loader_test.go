package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestRelLoaderLoadSimpleRelationships(t *testing.T) {
	loader := NewRelLoaderDefaultColumns(
		[]PropertyColumn{{Name: "since", DataType: types.Int64}},
		DefaultImportConfig(),
	)

	path := writeTempCSV(t, "FROM,TO,since\nAlice,Bob,2020\nBob,Charlie,2019\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.True(t, result.IsSuccess())

	from0, _ := rels[0].FromKey.AsString()
	to0, _ := rels[0].ToKey.AsString()
	since0, _ := rels[0].Properties[0].AsInt64()
	assert.Equal(t, "Alice", from0)
	assert.Equal(t, "Bob", to0)
	assert.Equal(t, int64(2020), since0)
}

func TestRelLoaderCustomColumnNames(t *testing.T) {
	loader := NewRelLoader("source", "target", nil, DefaultImportConfig())

	path := writeTempCSV(t, "source,target\nA,B\nB,C\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
	assert.True(t, result.IsSuccess())
}

func TestRelLoaderMissingFromColumn(t *testing.T) {
	loader := NewRelLoaderDefaultColumns(nil, DefaultImportConfig())

	path := writeTempCSV(t, "TO,weight\nBob,100\n")
	_, _, err := loader.Load(path, nil)
	assert.Error(t, err)
}

func TestRelLoaderEmptyKeyError(t *testing.T) {
	loader := NewRelLoaderDefaultColumns(nil, DefaultImportConfig())

	path := writeTempCSV(t, "FROM,TO\nAlice,\n")
	_, _, err := loader.Load(path, nil)
	assert.Error(t, err)
}

func TestRelLoaderIgnoreErrors(t *testing.T) {
	cfg := DefaultImportConfig()
	cfg.IgnoreErrors = true
	loader := NewRelLoaderDefaultColumns(nil, cfg)

	path := writeTempCSV(t, "FROM,TO\nAlice,Bob\nCharlie,\nDiana,Eve\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
	assert.Equal(t, uint64(1), result.RowsFailed)
}

func TestRelLoaderLoadSequentialExplicit(t *testing.T) {
	cfg := Sequential()
	loader := NewRelLoaderDefaultColumns(nil, cfg)

	path := writeTempCSV(t, "FROM,TO\nAlice,Bob\nBob,Charlie\nCharlie,Diana\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, rels, 3)
	assert.True(t, result.IsSuccess())
}

func TestRelLoaderLoadWithStringInterning(t *testing.T) {
	cfg := Sequential()
	cfg.InternStrings = true
	loader := NewRelLoaderDefaultColumns(nil, cfg)

	path := writeTempCSV(t, "FROM,TO\nAlice,Bob\nAlice,Charlie\nBob,Alice\nCharlie,Alice\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, rels, 4)
	assert.True(t, result.IsSuccess())

	require.NotNil(t, loader.interner)
	assert.Equal(t, 3, loader.interner.UniqueCount())
	assert.Greater(t, loader.interner.HitRate(), 0.0)
}

func TestRelLoaderLoadWithSharedInterner(t *testing.T) {
	shared := NewSharedInterner()
	cfg := Sequential()
	loader := NewRelLoaderWithInterner("FROM", "TO", nil, cfg, shared)

	path := writeTempCSV(t, "FROM,TO\nAlice,Bob\nAlice,Bob\nAlice,Bob\n")
	rels, result, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, rels, 3)
	assert.True(t, result.IsSuccess())

	assert.Equal(t, 2, shared.UniqueCount())
	assert.Equal(t, uint64(4), shared.Hits())
}

func TestRelLoaderBoolPropertyAcceptsWiderSpellings(t *testing.T) {
	loader := NewRelLoaderDefaultColumns(
		[]PropertyColumn{{Name: "active", DataType: types.Bool}},
		Sequential(),
	)

	path := writeTempCSV(t, "FROM,TO,active\nAlice,Bob,yes\nBob,Charlie,0\n")
	rels, _, err := loader.Load(path, nil)
	require.NoError(t, err)
	require.Len(t, rels, 2)

	active0, _ := rels[0].Properties[0].AsBool()
	active1, _ := rels[1].Properties[0].AsBool()
	assert.True(t, active0)
	assert.False(t, active1)
}
