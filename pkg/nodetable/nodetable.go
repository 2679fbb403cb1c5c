// Package nodetable implements columnar storage for a single node
// table: one ColumnStorage per schema column, plus a primary-key index
// for O(1) lookup.
package nodetable

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// ColumnStorage holds every value of one column, in row order.
type ColumnStorage struct {
	Name   string
	Type   types.DataType
	Values []types.Value
}

func newColumnStorage(name string, typ types.DataType) *ColumnStorage {
	return &ColumnStorage{Name: name, Type: typ}
}

// Len returns the number of values currently stored in the column.
func (c *ColumnStorage) Len() int { return len(c.Values) }

// NodeTable is the in-memory columnar representation of one node
// table's rows.
type NodeTable struct {
	Schema   *catalog.NodeTableSchema
	Columns  []*ColumnStorage
	RowCount int

	// pkIndex maps an encoded primary-key tuple to its row index. A
	// single map serves both single-column and composite keys, unlike
	// a two-tier direct/linear-scan lookup, since the encoding cost is
	// the same either way.
	pkIndex map[string]int
}

// New creates an empty table for schema.
func New(schema *catalog.NodeTableSchema) *NodeTable {
	columns := make([]*ColumnStorage, len(schema.Columns))
	for i, col := range schema.Columns {
		columns[i] = newColumnStorage(col.Name, col.DataType)
	}
	return &NodeTable{
		Schema:  schema,
		Columns: columns,
		pkIndex: make(map[string]int),
	}
}

func encodePK(values []types.Value) string {
	var buf bytes.Buffer
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(0)
		}
		fmt.Fprintf(&buf, "%v", v)
	}
	return buf.String()
}

func (t *NodeTable) pkValues(row map[string]types.Value) ([]types.Value, error) {
	values := make([]types.Value, len(t.Schema.PrimaryKey))
	for i, col := range t.Schema.PrimaryKey {
		v, ok := row[col]
		if !ok {
			return nil, engineerr.New(engineerr.KindConstraintViolation, "row missing primary key column %q", col)
		}
		values[i] = v
	}
	return values, nil
}

// Insert appends row to the table after validating that every schema
// column is present with the matching type and the primary key is
// unique.
func (t *NodeTable) Insert(row map[string]types.Value) error {
	for _, col := range t.Schema.Columns {
		v, ok := row[col.Name]
		if !ok {
			return engineerr.New(engineerr.KindSchema, "row missing column %q", col.Name)
		}
		if !v.IsNull() {
			if dt, _ := v.DataType(); dt != col.DataType {
				return engineerr.New(engineerr.KindType, "column %q expects %s, got %s", col.Name, col.DataType, dt)
			}
		}
	}

	pk, err := t.pkValues(row)
	if err != nil {
		return err
	}
	key := encodePK(pk)
	if _, exists := t.pkIndex[key]; exists {
		return engineerr.New(engineerr.KindConstraintViolation, "duplicate primary key in table %q", t.Schema.Name)
	}

	for _, col := range t.Columns {
		col.Values = append(col.Values, row[col.Name])
	}
	t.pkIndex[key] = t.RowCount
	t.RowCount++
	return nil
}

// InsertBatch inserts multiple rows at once. columnOrder gives the
// column name each position in every row of rows corresponds to, which
// may differ from the table's own column order (e.g. a CSV file whose
// header order doesn't match the schema). All rows are validated for
// intra-batch primary-key duplicates before any are appended.
func (t *NodeTable) InsertBatch(rows [][]types.Value, columnOrder []string) (int, error) {
	colPos := make(map[string]int, len(columnOrder))
	for i, name := range columnOrder {
		colPos[name] = i
	}

	remapped := make([]map[string]types.Value, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		m := make(map[string]types.Value, len(t.Schema.Columns))
		for _, col := range t.Schema.Columns {
			pos, ok := colPos[col.Name]
			if !ok || pos >= len(row) {
				return 0, engineerr.New(engineerr.KindSchema, "batch row %d missing column %q", i, col.Name)
			}
			m[col.Name] = row[pos]
		}
		pk, err := t.pkValues(m)
		if err != nil {
			return 0, err
		}
		key := encodePK(pk)
		if seen[key] {
			return 0, engineerr.New(engineerr.KindConstraintViolation, "duplicate primary key within batch for table %q", t.Schema.Name)
		}
		seen[key] = true
		remapped[i] = m
	}

	inserted := 0
	for _, m := range remapped {
		if err := t.Insert(m); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// FindByPK returns the row index matching the given primary-key values,
// and ok=false if no such row exists.
func (t *NodeTable) FindByPK(pk []types.Value) (int, bool) {
	idx, ok := t.pkIndex[encodePK(pk)]
	return idx, ok
}

// Row materializes row index idx as a fully-qualified map keyed by
// "{alias}.{column}".
func (t *NodeTable) Row(idx int, alias string) map[string]types.Value {
	out := make(map[string]types.Value, len(t.Columns))
	for _, col := range t.Columns {
		out[alias+"."+col.Name] = col.Values[idx]
	}
	return out
}

// Data is the flat, persistence-friendly snapshot of a NodeTable's
// contents, round-tripped through ToData/FromData.
type Data struct {
	Columns  []ColumnStorage
	RowCount int
}

// ToData snapshots the table for persistence.
func (t *NodeTable) ToData() Data {
	cols := make([]ColumnStorage, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = *c
	}
	return Data{Columns: cols, RowCount: t.RowCount}
}

// FromData reconstructs a NodeTable from a previously persisted Data
// snapshot plus the current schema, rebuilding the primary-key index.
func FromData(schema *catalog.NodeTableSchema, data Data) (*NodeTable, error) {
	t := New(schema)
	t.RowCount = data.RowCount
	for i, col := range data.Columns {
		if i >= len(t.Columns) {
			break
		}
		t.Columns[i].Values = col.Values
	}
	for i := 0; i < t.RowCount; i++ {
		row := make(map[string]types.Value, len(t.Columns))
		for _, col := range t.Columns {
			row[col.Name] = col.Values[i]
		}
		pk, err := t.pkValues(row)
		if err != nil {
			return nil, err
		}
		t.pkIndex[encodePK(pk)] = i
	}
	return t, nil
}

// Encode serializes a Data snapshot for storage via the multipage codec.
func (d Data) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "encoding table data")
	}
	return buf.Bytes(), nil
}

// DecodeData reconstructs a Data snapshot previously produced by Encode.
func DecodeData(raw []byte) (Data, error) {
	var d Data
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
		return Data{}, engineerr.Wrap(engineerr.KindStorage, err, "decoding table data")
	}
	return d, nil
}
