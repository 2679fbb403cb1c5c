package vecexec

import "github.com/cuemby/ruzudb/pkg/types"

// Batch is a column-major slice of rows: every column has the same
// length (NumRows), optionally narrowed by a pending Selection.
type Batch struct {
	Columns   map[string][]types.Value
	NumRows   int
	Selection *SelectionVector
}

// NewBatch creates a batch with no selection applied (every row live).
func NewBatch(columns map[string][]types.Value, numRows int) *Batch {
	return &Batch{Columns: columns, NumRows: numRows}
}

// EffectiveRows returns the number of rows the batch currently reports:
// the selection length if one is set, else NumRows.
func (b *Batch) EffectiveRows() int {
	if b.Selection != nil {
		return b.Selection.Len()
	}
	return b.NumRows
}

// Column returns a column's full underlying slice, ignoring selection.
// Evaluators index into it via the selection themselves.
func (b *Batch) Column(name string) ([]types.Value, bool) {
	col, ok := b.Columns[name]
	return col, ok
}

// Materialize returns a new Batch containing only the selected rows,
// with no pending selection of its own.
func (b *Batch) Materialize() *Batch {
	if b.Selection == nil {
		return b
	}
	out := make(map[string][]types.Value, len(b.Columns))
	for name, col := range b.Columns {
		materialized := make([]types.Value, b.Selection.Len())
		for i, idx := range b.Selection.Indices {
			materialized[i] = col[idx]
		}
		out[name] = materialized
	}
	return &Batch{Columns: out, NumRows: b.Selection.Len()}
}

// Filter narrows the batch's selection to rows where keep is true,
// intersecting with any selection already in place.
func (b *Batch) Filter(keep []bool) *Batch {
	var idx []uint32
	if b.Selection != nil {
		for i, rowIdx := range b.Selection.Indices {
			if keep[i] {
				idx = append(idx, rowIdx)
			}
		}
	} else {
		for i, k := range keep {
			if k {
				idx = append(idx, uint32(i))
			}
		}
	}
	return &Batch{Columns: b.Columns, NumRows: b.NumRows, Selection: &SelectionVector{Indices: idx}}
}
