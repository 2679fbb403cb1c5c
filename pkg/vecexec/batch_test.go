package vecexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/types"
)

func ageBatch() *Batch {
	return NewBatch(map[string][]types.Value{
		"age":  {types.NewInt64(30), types.NewInt64(25), types.NewInt64(40)},
		"name": {types.NewString("Alice"), types.NewString("Bob"), types.NewString("Carol")},
	}, 3)
}

func TestSelectionVectorAll(t *testing.T) {
	s := All(3)
	require.Equal(t, 3, s.Len())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, uint32(0), s.Get(0))
	assert.Equal(t, uint32(2), s.Get(2))
}

func TestSelectionVectorIntersect(t *testing.T) {
	a := &SelectionVector{Indices: []uint32{0, 1, 2, 3}}
	b := &SelectionVector{Indices: []uint32{1, 3}}
	got := a.Intersect(b)
	assert.Equal(t, []uint32{1, 3}, got.Indices)
}

func TestBatchColumnLookup(t *testing.T) {
	b := ageBatch()
	col, ok := b.Column("age")
	require.True(t, ok)
	assert.Len(t, col, 3)

	_, ok = b.Column("missing")
	assert.False(t, ok)
}

func TestBatchEffectiveRowsRespectsSelection(t *testing.T) {
	b := ageBatch()
	assert.Equal(t, 3, b.EffectiveRows())

	b.Selection = &SelectionVector{Indices: []uint32{0, 2}}
	assert.Equal(t, 2, b.EffectiveRows())
}

func TestBatchFilterNarrowsSelection(t *testing.T) {
	b := ageBatch()
	filtered := b.Filter([]bool{true, false, true})
	assert.Equal(t, []uint32{0, 2}, filtered.Selection.Indices)

	// Filtering again intersects with the existing selection.
	refiltered := filtered.Filter([]bool{false, true})
	assert.Equal(t, []uint32{2}, refiltered.Selection.Indices)
}

func TestBatchMaterializeAppliesSelection(t *testing.T) {
	b := ageBatch()
	b.Selection = &SelectionVector{Indices: []uint32{2, 0}}
	m := b.Materialize()
	require.Equal(t, 2, m.NumRows)
	assert.Nil(t, m.Selection)

	col, _ := m.Column("name")
	s0, _ := col[0].AsString()
	s1, _ := col[1].AsString()
	assert.Equal(t, "Carol", s0)
	assert.Equal(t, "Alice", s1)
}

func TestBatchMaterializeNoSelectionReturnsSame(t *testing.T) {
	b := ageBatch()
	m := b.Materialize()
	assert.Same(t, b, m)
}
