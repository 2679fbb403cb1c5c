package nodetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/types"
)

func personSchema() *catalog.NodeTableSchema {
	return &catalog.NodeTableSchema{
		TableID: 0,
		Name:    "Person",
		Columns: []catalog.ColumnDef{
			{Name: "id", DataType: types.Int64},
			{Name: "name", DataType: types.String},
		},
		PrimaryKey: []string{"id"},
	}
}

func TestInsertAndFindByPK(t *testing.T) {
	table := New(personSchema())
	err := table.Insert(map[string]types.Value{
		"id":   types.NewInt64(1),
		"name": types.NewString("Alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount)

	idx, ok := table.FindByPK([]types.Value{types.NewInt64(1)})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestInsertDuplicatePK(t *testing.T) {
	table := New(personSchema())
	row := map[string]types.Value{"id": types.NewInt64(1), "name": types.NewString("Alice")}
	require.NoError(t, table.Insert(row))
	err := table.Insert(row)
	assert.Error(t, err)
}

func TestInsertMissingColumn(t *testing.T) {
	table := New(personSchema())
	err := table.Insert(map[string]types.Value{"id": types.NewInt64(1)})
	assert.Error(t, err)
}

func TestInsertTypeMismatch(t *testing.T) {
	table := New(personSchema())
	err := table.Insert(map[string]types.Value{
		"id":   types.NewString("not-an-int"),
		"name": types.NewString("Alice"),
	})
	assert.Error(t, err)
}

func TestInsertBatchColumnRemap(t *testing.T) {
	table := New(personSchema())
	rows := [][]types.Value{
		{types.NewString("Alice"), types.NewInt64(1)},
		{types.NewString("Bob"), types.NewInt64(2)},
	}
	n, err := table.InsertBatch(rows, []string{"name", "id"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, table.RowCount)

	idx, ok := table.FindByPK([]types.Value{types.NewInt64(2)})
	require.True(t, ok)
	row := table.Row(idx, "p")
	v, _ := row["p.name"].AsString()
	assert.Equal(t, "Bob", v)
}

func TestInsertBatchRejectsDuplicateWithinBatch(t *testing.T) {
	table := New(personSchema())
	rows := [][]types.Value{
		{types.NewInt64(1), types.NewString("Alice")},
		{types.NewInt64(1), types.NewString("Alice Again")},
	}
	_, err := table.InsertBatch(rows, []string{"id", "name"})
	assert.Error(t, err)
}

func TestToDataFromDataRoundTrip(t *testing.T) {
	table := New(personSchema())
	require.NoError(t, table.Insert(map[string]types.Value{
		"id": types.NewInt64(1), "name": types.NewString("Alice"),
	}))

	data := table.ToData()
	restored, err := FromData(personSchema(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.RowCount)

	idx, ok := restored.FindByPK([]types.Value{types.NewInt64(1)})
	require.True(t, ok)
	row := restored.Row(idx, "p")
	v, _ := row["p.name"].AsString()
	assert.Equal(t, "Alice", v)
}

func TestDataEncodeDecode(t *testing.T) {
	table := New(personSchema())
	require.NoError(t, table.Insert(map[string]types.Value{
		"id": types.NewInt64(1), "name": types.NewString("Alice"),
	}))

	encoded, err := table.ToData().Encode()
	require.NoError(t, err)

	decoded, err := DecodeData(encoded)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.RowCount)
}
