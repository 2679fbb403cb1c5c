package rowexec

import (
	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/reltable"
	"github.com/cuemby/ruzudb/pkg/types"
)

// PathHop records one edge traversed by a variable-length path match.
type PathHop struct {
	Node uint64
	Rel  uint64
}

// VariableLengthExtendOperator performs a breadth-first search from
// each input row's source node, emitting one output row per distinct
// simple path reachable within [minHops, maxHops] hops. A node reachable
// by more than one simple path (e.g. a diamond A->B->D and A->C->D)
// produces one output row per such path, each carrying its own path.
type VariableLengthExtendOperator struct {
	input       Operator
	relTable    *reltable.RelTable
	relSchema   *catalog.RelTableSchema
	srcVariable string
	dstVariable string
	pathVar     string
	minHops     int
	maxHops     int

	pending []types.Row
}

// NewVariableLengthExtend creates a BFS traversal operator bounded to
// [minHops, maxHops] inclusive hops from the source node.
func NewVariableLengthExtend(input Operator, relTable *reltable.RelTable, relSchema *catalog.RelTableSchema, srcVariable, dstVariable, pathVar string, minHops, maxHops int) *VariableLengthExtendOperator {
	return &VariableLengthExtendOperator{
		input:       input,
		relTable:    relTable,
		relSchema:   relSchema,
		srcVariable: srcVariable,
		dstVariable: dstVariable,
		pathVar:     pathVar,
		minHops:     minHops,
		maxHops:     maxHops,
	}
}

func (v *VariableLengthExtendOperator) expand(row types.Row, srcID uint64) []types.Row {
	type frontierEntry struct {
		node    uint64
		path    []PathHop
		visited map[uint64]bool // the simple-path set for this entry alone, not shared across entries
	}

	frontier := []frontierEntry{{node: srcID, path: nil, visited: map[uint64]bool{srcID: true}}}
	var out []types.Row

	for hop := 1; hop <= v.maxHops && len(frontier) > 0; hop++ {
		var next []frontierEntry
		for _, entry := range frontier {
			for _, edge := range v.relTable.GetEdges(entry.node, v.relSchema.Direction) {
				if entry.visited[edge.Neighbor] {
					continue
				}
				visited := make(map[uint64]bool, len(entry.visited)+1)
				for n := range entry.visited {
					visited[n] = true
				}
				visited[edge.Neighbor] = true
				path := append(append([]PathHop{}, entry.path...), PathHop{Node: edge.Neighbor, Rel: edge.RelID})
				next = append(next, frontierEntry{node: edge.Neighbor, path: path, visited: visited})

				if hop >= v.minHops {
					outRow := row.Clone()
					outRow.Set(v.dstVariable+"._id", types.NewInt64(int64(edge.Neighbor)))
					if v.pathVar != "" {
						outRow.Set(v.pathVar+".length", types.NewInt64(int64(hop)))
					}
					out = append(out, outRow)
				}
			}
		}
		frontier = next
	}
	return out
}

func (v *VariableLengthExtendOperator) srcNodeID(row types.Row) (uint64, bool) {
	if val, ok := row.Get(v.srcVariable + "._id"); ok {
		if n, ok := val.AsInt64(); ok {
			return uint64(n), true
		}
	}
	return 0, false
}

func (v *VariableLengthExtendOperator) Next() (types.Row, bool, error) {
	for len(v.pending) == 0 {
		row, ok, err := v.input.Next()
		if err != nil || !ok {
			return types.Row{}, false, err
		}
		srcID, ok := v.srcNodeID(row)
		if !ok {
			continue
		}
		v.pending = v.expand(row, srcID)
	}
	row := v.pending[0]
	v.pending = v.pending[1:]
	return row, true, nil
}
