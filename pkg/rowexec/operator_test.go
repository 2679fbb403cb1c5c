package rowexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/nodetable"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/reltable"
	"github.com/cuemby/ruzudb/pkg/types"
)

func personTable(t *testing.T) *nodetable.NodeTable {
	t.Helper()
	schema := &catalog.NodeTableSchema{
		Name: "Person",
		Columns: []catalog.ColumnDef{
			{Name: "id", DataType: types.Int64},
			{Name: "name", DataType: types.String},
			{Name: "age", DataType: types.Int64},
		},
		PrimaryKey: []string{"id"},
	}
	table := nodetable.New(schema)
	people := []struct {
		id   int64
		name string
		age  int64
	}{
		{0, "Alice", 30},
		{1, "Bob", 25},
		{2, "Carol", 40},
	}
	for _, p := range people {
		require.NoError(t, table.Insert(map[string]types.Value{
			"id": types.NewInt64(p.id), "name": types.NewString(p.name), "age": types.NewInt64(p.age),
		}))
	}
	return table
}

func drain(t *testing.T, op Operator) []types.Row {
	t.Helper()
	var rows []types.Row
	for {
		row, ok, err := op.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func TestScanEmitsAllRows(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	rows := drain(t, scan)
	assert.Len(t, rows, 3)
	name, _ := rows[0].Get("p.name")
	s, _ := name.AsString()
	assert.Equal(t, "Alice", s)
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	filter := NewFilter(scan, queryir.Compare(queryir.Prop("p.age"), queryir.Gt, queryir.Lit(types.NewInt64(28))))
	rows := drain(t, filter)
	assert.Len(t, rows, 2)
}

func TestProjectKeepsOnlyNamedColumns(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	project := NewProject(scan, []Projection{{Variable: "p", Property: "name"}})
	rows := drain(t, project)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Len())
	assert.True(t, rows[0].Contains("p.name"))
}

func TestExtendSingleHop(t *testing.T) {
	relSchema := &catalog.RelTableSchema{Name: "Knows", SrcTable: "Person", DstTable: "Person", Direction: catalog.Forward}
	rel := reltable.New(relSchema)
	rel.Insert(0, 1, nil)
	rel.Insert(0, 2, nil)

	scan := NewScan(personTable(t), "p")
	extend := NewExtend(scan, rel, relSchema, "p", "f", "")
	rows := drain(t, extend)
	assert.Len(t, rows, 2)
}

func TestLimitAndSkip(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	limited := NewLimit(NewSkip(scan, 1), 1)
	rows := drain(t, limited)
	require.Len(t, rows, 1)
	name, _ := rows[0].Get("p.name")
	s, _ := name.AsString()
	assert.Equal(t, "Bob", s)
}

func TestOrderBy(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	ordered := NewOrderBy(scan, []SortKey{{Column: "p.age", Descending: true}})
	rows := drain(t, ordered)
	require.Len(t, rows, 3)
	name, _ := rows[0].Get("p.name")
	s, _ := name.AsString()
	assert.Equal(t, "Carol", s)
}

func TestAggregateCount(t *testing.T) {
	scan := NewScan(personTable(t), "p")
	agg := NewAggregate(scan, nil, []Aggregation{{Func: Count, As: "total"}})
	rows := drain(t, agg)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("total")
	n, _ := v.AsInt64()
	assert.Equal(t, int64(3), n)
}

func diamondTable(t *testing.T) *nodetable.NodeTable {
	t.Helper()
	schema := &catalog.NodeTableSchema{
		Name:       "Person",
		Columns:    []catalog.ColumnDef{{Name: "id", DataType: types.Int64}},
		PrimaryKey: []string{"id"},
	}
	table := nodetable.New(schema)
	for i := int64(0); i < 4; i++ {
		require.NoError(t, table.Insert(map[string]types.Value{"id": types.NewInt64(i)}))
	}
	return table
}

func TestVariableLengthExtendEmitsEveryDistinctSimplePath(t *testing.T) {
	// Diamond: 0 -> 1 -> 3 and 0 -> 2 -> 3. Node 3 is reachable from node
	// 0 by two distinct simple paths, so it must appear twice, not once.
	relSchema := &catalog.RelTableSchema{Name: "Knows", SrcTable: "Person", DstTable: "Person", Direction: catalog.Forward}
	rel := reltable.New(relSchema)
	rel.Insert(0, 1, nil)
	rel.Insert(0, 2, nil)
	rel.Insert(1, 3, nil)
	rel.Insert(2, 3, nil)

	scan := NewScan(diamondTable(t), "p")
	vle := NewVariableLengthExtend(scan, rel, relSchema, "p", "f", "path", 2, 2)
	rows := drain(t, vle)
	require.Len(t, rows, 2)
	for _, row := range rows {
		v, ok := row.Get("f._id")
		require.True(t, ok)
		n, _ := v.AsInt64()
		assert.Equal(t, int64(3), n)
	}
}

func TestVariableLengthExtend(t *testing.T) {
	relSchema := &catalog.RelTableSchema{Name: "Knows", SrcTable: "Person", DstTable: "Person", Direction: catalog.Forward}
	rel := reltable.New(relSchema)
	rel.Insert(0, 1, nil)
	rel.Insert(1, 2, nil)

	scan := NewScan(personTable(t), "p")
	vle := NewVariableLengthExtend(scan, rel, relSchema, "p", "f", "path", 1, 2)
	rows := drain(t, vle)
	// Node 0 yields hop-1 (node 1) and hop-2 (node 2) results; node 1
	// yields hop-1 (node 2); node 2 has no outgoing edges.
	assert.Len(t, rows, 3)
}
