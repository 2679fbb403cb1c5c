// Package catalog tracks the schema of every node and relationship
// table in a ruzudb database: column definitions, primary keys, and the
// source/destination tables and traversal direction of relationships.
package catalog

import (
	"bytes"
	"encoding/gob"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// ColumnDef names one column of a table and its scalar type.
type ColumnDef struct {
	Name     string
	DataType types.DataType
}

// Direction constrains which way a relationship table may be traversed.
type Direction int

const (
	// Forward allows traversal only from src to dst.
	Forward Direction = iota
	// Backward allows traversal only from dst to src.
	Backward
	// Both allows traversal in either direction.
	Both
)

// NodeTableSchema describes the columns and primary key of a node table.
type NodeTableSchema struct {
	TableID    uint32
	Name       string
	Columns    []ColumnDef
	PrimaryKey []string
}

// Validate checks the schema's internal consistency: non-empty columns,
// unique column names, and a non-empty primary key made up of columns
// that actually exist.
func (s *NodeTableSchema) Validate() error {
	if len(s.Columns) == 0 {
		return engineerr.New(engineerr.KindSchema, "table %q must declare at least one column", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return engineerr.New(engineerr.KindSchema, "table %q has duplicate column %q", s.Name, c.Name)
		}
		seen[c.Name] = true
	}
	if len(s.PrimaryKey) == 0 {
		return engineerr.New(engineerr.KindSchema, "table %q must declare a primary key", s.Name)
	}
	for _, pk := range s.PrimaryKey {
		if !seen[pk] {
			return engineerr.New(engineerr.KindSchema, "table %q primary key references unknown column %q", s.Name, pk)
		}
	}
	return nil
}

// ColumnIndex returns the position of name in Columns, or ok=false.
func (s *NodeTableSchema) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// RelTableSchema describes a relationship table's endpoints, properties
// and allowed traversal direction.
type RelTableSchema struct {
	TableID   uint32
	Name      string
	SrcTable  string
	DstTable  string
	Columns   []ColumnDef
	Direction Direction
}

// ColumnIndex returns the position of name in Columns, or ok=false.
func (s *RelTableSchema) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Catalog is the authoritative registry of every table and relationship
// table schema in a database.
type Catalog struct {
	Tables      map[string]*NodeTableSchema
	RelTables   map[string]*RelTableSchema
	NextTableID uint32
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		Tables:    make(map[string]*NodeTableSchema),
		RelTables: make(map[string]*RelTableSchema),
	}
}

func (c *Catalog) nameTaken(name string) bool {
	_, nodeOK := c.Tables[name]
	_, relOK := c.RelTables[name]
	return nodeOK || relOK
}

// CreateTable registers a new node table schema, assigning it the next
// table ID. Fails if name collides with an existing node or
// relationship table, or the schema itself is invalid.
func (c *Catalog) CreateTable(name string, columns []ColumnDef, primaryKey []string) (*NodeTableSchema, error) {
	if c.nameTaken(name) {
		return nil, engineerr.New(engineerr.KindSchema, "table %q already exists", name)
	}
	schema := &NodeTableSchema{
		TableID:    c.NextTableID,
		Name:       name,
		Columns:    columns,
		PrimaryKey: primaryKey,
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	c.Tables[name] = schema
	c.NextTableID++
	return schema, nil
}

// CreateRelTable registers a new relationship table schema. Fails if
// name collides, or srcTable/dstTable don't reference existing node
// tables.
func (c *Catalog) CreateRelTable(name, srcTable, dstTable string, columns []ColumnDef, direction Direction) (*RelTableSchema, error) {
	if c.nameTaken(name) {
		return nil, engineerr.New(engineerr.KindSchema, "relationship table %q already exists", name)
	}
	if _, ok := c.Tables[srcTable]; !ok {
		return nil, engineerr.New(engineerr.KindSchema, "relationship table %q references unknown src table %q", name, srcTable)
	}
	if _, ok := c.Tables[dstTable]; !ok {
		return nil, engineerr.New(engineerr.KindSchema, "relationship table %q references unknown dst table %q", name, dstTable)
	}
	schema := &RelTableSchema{
		TableID:   c.NextTableID,
		Name:      name,
		SrcTable:  srcTable,
		DstTable:  dstTable,
		Columns:   columns,
		Direction: direction,
	}
	c.RelTables[name] = schema
	c.NextTableID++
	return schema, nil
}

// TableNameByID searches both node and relationship tables for id.
func (c *Catalog) TableNameByID(id uint32) (string, bool) {
	for name, s := range c.Tables {
		if s.TableID == id {
			return name, true
		}
	}
	for name, s := range c.RelTables {
		if s.TableID == id {
			return name, true
		}
	}
	return "", false
}

// persisted mirrors Catalog's exported fields in a form gob can encode
// without needing every embedded type to register itself.
type persisted struct {
	Tables      map[string]*NodeTableSchema
	RelTables   map[string]*RelTableSchema
	NextTableID uint32
}

// Encode serializes the catalog for storage via the multipage codec.
func (c *Catalog) Encode() ([]byte, error) {
	var buf bytes.Buffer
	p := persisted{Tables: c.Tables, RelTables: c.RelTables, NextTableID: c.NextTableID}
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, engineerr.Wrap(engineerr.KindCatalog, err, "encoding catalog")
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a Catalog previously produced by Encode.
func Decode(data []byte) (*Catalog, error) {
	var p persisted
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, engineerr.Wrap(engineerr.KindCatalog, err, "decoding catalog")
	}
	if p.Tables == nil {
		p.Tables = make(map[string]*NodeTableSchema)
	}
	if p.RelTables == nil {
		p.RelTables = make(map[string]*RelTableSchema)
	}
	return &Catalog{Tables: p.Tables, RelTables: p.RelTables, NextTableID: p.NextTableID}, nil
}
