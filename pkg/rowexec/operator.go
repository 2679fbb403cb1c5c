// Package rowexec implements the pull-based, row-at-a-time query
// executor: a small set of composable PhysicalOperators (scan, filter,
// project, single-hop extend) plus the expression evaluator they share.
package rowexec

import (
	"strings"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/nodetable"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/reltable"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Operator is the pull-based iterator every physical operator
// implements: each call produces at most one row, with ok=false
// signaling exhaustion (not an error).
type Operator interface {
	Next() (types.Row, bool, error)
}

// ScanOperator emits every row of a table, qualified under variable.
type ScanOperator struct {
	table    *nodetable.NodeTable
	variable string
	cursor   int
}

// NewScan creates a scan over table, naming each row's columns after
// variable (e.g. "p.name" for variable "p").
func NewScan(table *nodetable.NodeTable, variable string) *ScanOperator {
	return &ScanOperator{table: table, variable: variable}
}

func (s *ScanOperator) Next() (types.Row, bool, error) {
	if s.cursor >= s.table.RowCount {
		return types.Row{}, false, nil
	}
	raw := s.table.Row(s.cursor, s.variable)
	s.cursor++
	row := types.NewRow()
	for k, v := range raw {
		row.Set(k, v)
	}
	row.Set(s.variable+"._id", types.NewInt64(int64(s.cursor-1)))
	metrics.RowsEmitted.WithLabelValues("scan").Inc()
	return row, true, nil
}

// FilterOperator re-emits only the rows of child for which predicate
// evaluates true.
type FilterOperator struct {
	child     Operator
	predicate *queryir.Expression
}

func NewFilter(child Operator, predicate *queryir.Expression) *FilterOperator {
	return &FilterOperator{child: child, predicate: predicate}
}

func (f *FilterOperator) Next() (types.Row, bool, error) {
	for {
		row, ok, err := f.child.Next()
		if err != nil || !ok {
			return row, ok, err
		}
		v, err := Evaluate(f.predicate, row)
		if err != nil {
			return types.Row{}, false, err
		}
		b, _ := v.AsBool()
		if b {
			return row, true, nil
		}
	}
}

// Projection names one output column: var.prop becomes the column
// "var.prop" unless As is set.
type Projection struct {
	Variable string
	Property string
	As       string
}

func (p Projection) sourceKey() string {
	if p.Property == "" {
		return p.Variable
	}
	return p.Variable + "." + p.Property
}

func (p Projection) outputKey() string {
	if p.As != "" {
		return p.As
	}
	return p.sourceKey()
}

// ProjectOperator rebuilds each row of child with only the named
// projections.
type ProjectOperator struct {
	child       Operator
	projections []Projection
}

func NewProject(child Operator, projections []Projection) *ProjectOperator {
	return &ProjectOperator{child: child, projections: projections}
}

func (p *ProjectOperator) Next() (types.Row, bool, error) {
	row, ok, err := p.child.Next()
	if err != nil || !ok {
		return row, ok, err
	}
	out := types.NewRow()
	for _, proj := range p.projections {
		v, ok := row.Get(proj.sourceKey())
		if !ok {
			v = types.Null
		}
		out.Set(proj.outputKey(), v)
	}
	return out, true, nil
}

// ExtendOperator performs a single-hop traversal from srcVariable over
// relTable, emitting one output row per matching edge.
type ExtendOperator struct {
	input       Operator
	relTable    *reltable.RelTable
	relSchema   *catalog.RelTableSchema
	srcVariable string
	dstVariable string
	relVariable string // empty if the edge itself isn't bound to a variable

	currentRow   types.Row
	currentEdges []reltable.Edge
	edgeIndex    int
	haveRow      bool
}

// NewExtend creates an extend operator. relVariable may be empty.
func NewExtend(input Operator, relTable *reltable.RelTable, relSchema *catalog.RelTableSchema, srcVariable, dstVariable, relVariable string) *ExtendOperator {
	return &ExtendOperator{
		input:       input,
		relTable:    relTable,
		relSchema:   relSchema,
		srcVariable: srcVariable,
		dstVariable: dstVariable,
		relVariable: relVariable,
	}
}

func (e *ExtendOperator) srcNodeID(row types.Row) (uint64, bool) {
	if v, ok := row.Get(e.srcVariable + "._id"); ok {
		if n, ok := v.AsInt64(); ok {
			return uint64(n), true
		}
	}
	if v, ok := row.Get(e.srcVariable + ".id"); ok {
		if n, ok := v.AsInt64(); ok {
			return uint64(n), true
		}
	}
	var found uint64
	ok := false
	row.Range(func(col string, v types.Value) bool {
		if strings.HasPrefix(col, e.srcVariable) && strings.HasSuffix(col, ".id") {
			if n, valid := v.AsInt64(); valid {
				found = uint64(n)
				ok = true
				return false
			}
		}
		return true
	})
	return found, ok
}

func (e *ExtendOperator) createOutputRow(dstID uint64, relID uint64) types.Row {
	out := e.currentRow.Clone()
	out.Set(e.dstVariable+"._id", types.NewInt64(int64(dstID)))
	if e.relVariable != "" {
		out.Set(e.relVariable+"._id", types.NewInt64(int64(relID)))
		if props, ok := e.relTable.GetProperties(relID); ok {
			for i, col := range e.relSchema.Columns {
				if i < len(props) {
					out.Set(e.relVariable+"."+col.Name, props[i])
				}
			}
		}
	}
	return out
}

func (e *ExtendOperator) Next() (types.Row, bool, error) {
	for {
		if e.haveRow && e.edgeIndex < len(e.currentEdges) {
			edge := e.currentEdges[e.edgeIndex]
			e.edgeIndex++
			return e.createOutputRow(edge.Neighbor, edge.RelID), true, nil
		}

		row, ok, err := e.input.Next()
		if err != nil || !ok {
			return types.Row{}, false, err
		}
		e.currentRow = row
		e.haveRow = true
		e.edgeIndex = 0

		srcID, ok := e.srcNodeID(row)
		if !ok {
			return types.Row{}, false, engineerr.New(engineerr.KindExecution, "extend: could not resolve node id for variable %q", e.srcVariable)
		}
		e.currentEdges = e.relTable.GetEdges(srcID, e.relSchema.Direction)
	}
}
