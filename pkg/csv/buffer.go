package csv

import "github.com/cuemby/ruzudb/pkg/types"

// RowBuffer is a reusable batch of parsed rows: it caps the number of
// rows it will hold and recycles the inner []types.Value slices across
// batches to cut allocations during streaming imports.
type RowBuffer struct {
	rows           [][]types.Value
	capacity       int
	columnCapacity int
	recycled       [][]types.Value
}

// NewRowBuffer creates a buffer capped at rowCapacity rows, each
// pre-sized to hold columnCapacity values.
func NewRowBuffer(rowCapacity, columnCapacity int) *RowBuffer {
	return &RowBuffer{
		rows:           make([][]types.Value, 0, rowCapacity),
		capacity:       rowCapacity,
		columnCapacity: columnCapacity,
	}
}

// Push appends row, reporting ok=false if the buffer is already at
// capacity.
func (b *RowBuffer) Push(row []types.Value) bool {
	if len(b.rows) >= b.capacity {
		return false
	}
	b.rows = append(b.rows, row)
	return true
}

// PushWithRecycling appends values as a new row, reusing a recycled
// slice from a prior Recycle call when one is available.
func (b *RowBuffer) PushWithRecycling(values []types.Value) bool {
	if len(b.rows) >= b.capacity {
		return false
	}
	var row []types.Value
	if n := len(b.recycled); n > 0 {
		row = b.recycled[n-1]
		b.recycled = b.recycled[:n-1]
	} else {
		row = make([]types.Value, 0, b.columnCapacity)
	}
	row = append(row, values...)
	b.rows = append(b.rows, row)
	return true
}

// Len returns the number of rows currently buffered.
func (b *RowBuffer) Len() int { return len(b.rows) }

// IsEmpty reports whether the buffer holds no rows.
func (b *RowBuffer) IsEmpty() bool { return len(b.rows) == 0 }

// IsFull reports whether the buffer has reached its row capacity.
func (b *RowBuffer) IsFull() bool { return len(b.rows) >= b.capacity }

// Capacity returns the buffer's maximum row count.
func (b *RowBuffer) Capacity() int { return b.capacity }

// ColumnCapacity returns the pre-allocation hint used for new rows.
func (b *RowBuffer) ColumnCapacity() int { return b.columnCapacity }

// RecycledCount returns the number of row slices available for reuse.
func (b *RowBuffer) RecycledCount() int { return len(b.recycled) }

// Clear empties the buffer without recycling its row slices.
func (b *RowBuffer) Clear() {
	b.rows = b.rows[:0]
}

const maxRecycledMultiple = 2

// Recycle moves every buffered row's slice into the recycled pool
// (after truncating it to zero length) for reuse by a later
// PushWithRecycling call,
// bounding the pool at twice the buffer's capacity.
func (b *RowBuffer) Recycle() {
	for _, row := range b.rows {
		b.recycled = append(b.recycled, row[:0])
	}
	b.rows = b.rows[:0]
	b.trimRecycled()
}

// Take returns the buffered rows and resets the buffer to empty,
// preserving its capacity for the next batch.
func (b *RowBuffer) Take() [][]types.Value {
	rows := b.rows
	b.rows = make([][]types.Value, 0, b.capacity)
	return rows
}

// ReturnForRecycling accepts rows previously obtained from Take, once
// the caller has finished with them, and pools their slices for reuse.
func (b *RowBuffer) ReturnForRecycling(rows [][]types.Value) {
	for _, row := range rows {
		b.recycled = append(b.recycled, row[:0])
	}
	b.trimRecycled()
}

func (b *RowBuffer) trimRecycled() {
	max := b.capacity * maxRecycledMultiple
	if len(b.recycled) > max {
		b.recycled = b.recycled[:max]
	}
}

// Rows returns the buffer's current rows.
func (b *RowBuffer) Rows() [][]types.Value {
	return b.rows
}
