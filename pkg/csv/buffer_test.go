package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestRowBufferPushRespectsCapacity(t *testing.T) {
	b := NewRowBuffer(2, 3)
	assert.True(t, b.Push([]types.Value{types.NewInt64(1)}))
	assert.True(t, b.Push([]types.Value{types.NewInt64(2)}))
	assert.False(t, b.Push([]types.Value{types.NewInt64(3)}))
	assert.True(t, b.IsFull())
	assert.Equal(t, 2, b.Len())
}

func TestRowBufferClearEmptiesWithoutRecycling(t *testing.T) {
	b := NewRowBuffer(4, 2)
	b.Push([]types.Value{types.NewInt64(1)})
	b.Clear()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.RecycledCount())
}

func TestRowBufferRecyclePoolsSlices(t *testing.T) {
	b := NewRowBuffer(4, 2)
	b.Push([]types.Value{types.NewInt64(1)})
	b.Push([]types.Value{types.NewInt64(2)})
	b.Recycle()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 2, b.RecycledCount())
}

func TestRowBufferPushWithRecyclingReusesSlices(t *testing.T) {
	b := NewRowBuffer(4, 2)
	b.Push([]types.Value{types.NewInt64(1)})
	b.Recycle()
	require.Equal(t, 1, b.RecycledCount())

	ok := b.PushWithRecycling([]types.Value{types.NewInt64(2)})
	assert.True(t, ok)
	assert.Equal(t, 0, b.RecycledCount())

	v, _ := b.Rows()[0][0].AsInt64()
	assert.Equal(t, int64(2), v)
}

func TestRowBufferTakeResetsBuffer(t *testing.T) {
	b := NewRowBuffer(4, 2)
	b.Push([]types.Value{types.NewInt64(1)})
	rows := b.Take()
	assert.Len(t, rows, 1)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 4, b.Capacity())
}

func TestRowBufferTrimRecycledBoundsPool(t *testing.T) {
	b := NewRowBuffer(2, 1)
	var taken [][]types.Value
	for i := 0; i < 2; i++ {
		b.Push([]types.Value{types.NewInt64(int64(i))})
	}
	taken = b.Take()
	b.ReturnForRecycling(taken)
	for i := 0; i < 2; i++ {
		b.Push([]types.Value{types.NewInt64(int64(i))})
	}
	taken = b.Take()
	b.ReturnForRecycling(taken)

	assert.LessOrEqual(t, b.RecycledCount(), b.Capacity()*maxRecycledMultiple)
}
