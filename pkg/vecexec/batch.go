// Package vecexec implements a vectorized expression evaluator that
// operates on whole columns at once rather than row by row. Columns
// are plain []types.Value slices rather than typed Arrow arrays, since
// this module has no Arrow-equivalent dependency to build on; batches
// stay small enough (bounded by CSV import batch size) that the
// boxed-value representation doesn't dominate cost.
package vecexec

// SelectionVector names which row indices of a Batch are currently
// "in": a lazily-applied filter result, so a chain of Filter calls
// doesn't have to copy column data at every step.
type SelectionVector struct {
	Indices []uint32
}

// All returns a selection containing every row index in [0, count).
func All(count int) *SelectionVector {
	idx := make([]uint32, count)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return &SelectionVector{Indices: idx}
}

// Len returns the number of selected rows.
func (s *SelectionVector) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Indices)
}

// IsEmpty reports whether the selection contains no rows.
func (s *SelectionVector) IsEmpty() bool {
	return s.Len() == 0
}

// Get returns the underlying row index at position pos within the
// selection.
func (s *SelectionVector) Get(pos int) uint32 {
	return s.Indices[pos]
}

// Intersect returns the rows present in both s and other, preserving
// s's order.
func (s *SelectionVector) Intersect(other *SelectionVector) *SelectionVector {
	present := make(map[uint32]bool, other.Len())
	for _, idx := range other.Indices {
		present[idx] = true
	}
	out := make([]uint32, 0, s.Len())
	for _, idx := range s.Indices {
		if present[idx] {
			out = append(out, idx)
		}
	}
	return &SelectionVector{Indices: out}
}
