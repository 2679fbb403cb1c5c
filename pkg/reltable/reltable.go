// Package reltable implements relationship storage as a pair of
// compressed-sparse-row (CSR) adjacency indices — one forward (src to
// dst), one backward (dst to src) — partitioned into fixed-size node
// groups so a table can grow without relocating already-written groups.
package reltable

import (
	"bytes"
	"encoding/gob"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// NodeGroupSize is the number of node IDs covered by a single
// CsrNodeGroup. Node ID n lives in group n / NodeGroupSize at local
// index n % NodeGroupSize.
const NodeGroupSize = 131072

// Edge is one adjacency entry: the neighbor node ID and the
// relationship ID connecting to it.
type Edge struct {
	Neighbor uint64
	RelID    uint64
}

// CsrNodeGroup is the adjacency list for NodeGroupSize consecutive node
// IDs, stored in compressed-sparse-row form.
type CsrNodeGroup struct {
	GroupID   uint64
	NumNodes  uint64
	Offsets   []uint64
	Neighbors []uint64
	RelIDs    []uint64
}

func newNodeGroup(groupID uint64) *CsrNodeGroup {
	return &CsrNodeGroup{GroupID: groupID, Offsets: []uint64{0}}
}

// Validate checks the CSR invariants: Offsets starts at 0, has exactly
// NumNodes+1 entries, is monotonically non-decreasing, its last entry
// equals len(Neighbors), and RelIDs is the same length as Neighbors.
func (g *CsrNodeGroup) Validate() error {
	if len(g.Offsets) == 0 || g.Offsets[0] != 0 {
		return engineerr.New(engineerr.KindRelTableCorrupted, "group %d: offsets must start at 0", g.GroupID)
	}
	if uint64(len(g.Offsets)) != g.NumNodes+1 {
		return engineerr.New(engineerr.KindRelTableCorrupted, "group %d: offsets length %d != num_nodes+1 (%d)", g.GroupID, len(g.Offsets), g.NumNodes+1)
	}
	for i := 1; i < len(g.Offsets); i++ {
		if g.Offsets[i] < g.Offsets[i-1] {
			return engineerr.New(engineerr.KindRelTableCorrupted, "group %d: offsets not monotonic at index %d", g.GroupID, i)
		}
	}
	if g.Offsets[len(g.Offsets)-1] != uint64(len(g.Neighbors)) {
		return engineerr.New(engineerr.KindRelTableCorrupted, "group %d: last offset %d != len(neighbors) %d", g.GroupID, g.Offsets[len(g.Offsets)-1], len(g.Neighbors))
	}
	if len(g.RelIDs) != len(g.Neighbors) {
		return engineerr.New(engineerr.KindRelTableCorrupted, "group %d: rel_ids length %d != neighbors length %d", g.GroupID, len(g.RelIDs), len(g.Neighbors))
	}
	return nil
}

// ensureNode pads Offsets with zero-degree entries up to and including
// localID, growing NumNodes to match.
func (g *CsrNodeGroup) ensureNode(localID uint64) {
	for g.NumNodes <= localID {
		last := g.Offsets[len(g.Offsets)-1]
		g.Offsets = append(g.Offsets, last)
		g.NumNodes++
	}
}

// insertEdge adds one adjacency entry for localID, shifting every
// neighbor/relID after the insertion point and incrementing every
// subsequent offset. This is O(suffix length), not O(1): CSR favors
// compact, cache-friendly scans over cheap random insertion.
func (g *CsrNodeGroup) insertEdge(localID, neighbor, relID uint64) {
	g.ensureNode(localID)
	pos := g.Offsets[localID+1]

	g.Neighbors = append(g.Neighbors, 0)
	copy(g.Neighbors[pos+1:], g.Neighbors[pos:])
	g.Neighbors[pos] = neighbor

	g.RelIDs = append(g.RelIDs, 0)
	copy(g.RelIDs[pos+1:], g.RelIDs[pos:])
	g.RelIDs[pos] = relID

	for i := localID + 1; i < uint64(len(g.Offsets)); i++ {
		g.Offsets[i]++
	}
}

// edges returns the adjacency slice for localID, or nil if localID is
// outside the group's current node range.
func (g *CsrNodeGroup) edges(localID uint64) []Edge {
	if localID+1 >= uint64(len(g.Offsets)) {
		return nil
	}
	start, end := g.Offsets[localID], g.Offsets[localID+1]
	out := make([]Edge, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, Edge{Neighbor: g.Neighbors[i], RelID: g.RelIDs[i]})
	}
	return out
}

// RelTable stores every edge of one relationship type as parallel
// forward and backward CSR indices, plus an out-of-line property map
// for edges that carry non-empty property values.
type RelTable struct {
	Schema *catalog.RelTableSchema

	forward  map[uint64]*CsrNodeGroup
	backward map[uint64]*CsrNodeGroup

	properties map[uint64][]types.Value
	nextRelID  uint64
}

// New creates an empty relationship table for schema.
func New(schema *catalog.RelTableSchema) *RelTable {
	return &RelTable{
		Schema:     schema,
		forward:    make(map[uint64]*CsrNodeGroup),
		backward:   make(map[uint64]*CsrNodeGroup),
		properties: make(map[uint64][]types.Value),
	}
}

func groupAndLocal(nodeID uint64) (groupID, localID uint64) {
	return nodeID / NodeGroupSize, nodeID % NodeGroupSize
}

func (t *RelTable) ensureForwardGroup(groupID uint64) *CsrNodeGroup {
	g, ok := t.forward[groupID]
	if !ok {
		g = newNodeGroup(groupID)
		t.forward[groupID] = g
	}
	return g
}

func (t *RelTable) ensureBackwardGroup(groupID uint64) *CsrNodeGroup {
	g, ok := t.backward[groupID]
	if !ok {
		g = newNodeGroup(groupID)
		t.backward[groupID] = g
	}
	return g
}

// Insert adds an edge src->dst, updating both the forward and backward
// CSR indices, and returns the newly allocated relationship ID. Empty
// props are not recorded in the property map.
func (t *RelTable) Insert(src, dst uint64, props []types.Value) uint64 {
	relID := t.nextRelID
	t.nextRelID++

	srcGroupID, srcLocal := groupAndLocal(src)
	t.ensureForwardGroup(srcGroupID).insertEdge(srcLocal, dst, relID)

	dstGroupID, dstLocal := groupAndLocal(dst)
	t.ensureBackwardGroup(dstGroupID).insertEdge(dstLocal, src, relID)

	if len(props) > 0 {
		t.properties[relID] = props
	}
	return relID
}

// GetForwardEdges returns the out-edges of src (src -> neighbor).
func (t *RelTable) GetForwardEdges(src uint64) []Edge {
	groupID, local := groupAndLocal(src)
	g, ok := t.forward[groupID]
	if !ok {
		return nil
	}
	return g.edges(local)
}

// GetBackwardEdges returns the in-edges of dst (neighbor -> dst),
// reported as (neighbor, relID) pairs.
func (t *RelTable) GetBackwardEdges(dst uint64) []Edge {
	groupID, local := groupAndLocal(dst)
	g, ok := t.backward[groupID]
	if !ok {
		return nil
	}
	return g.edges(local)
}

// GetEdges dispatches to the forward and/or backward index according
// to direction, concatenating both for catalog.Both.
func (t *RelTable) GetEdges(nodeID uint64, direction catalog.Direction) []Edge {
	switch direction {
	case catalog.Forward:
		return t.GetForwardEdges(nodeID)
	case catalog.Backward:
		return t.GetBackwardEdges(nodeID)
	default:
		fwd := t.GetForwardEdges(nodeID)
		bwd := t.GetBackwardEdges(nodeID)
		out := make([]Edge, 0, len(fwd)+len(bwd))
		out = append(out, fwd...)
		out = append(out, bwd...)
		return out
	}
}

// GetProperties returns the property values recorded for relID, if any.
func (t *RelTable) GetProperties(relID uint64) ([]types.Value, bool) {
	v, ok := t.properties[relID]
	return v, ok
}

// Data is the persistence-friendly snapshot of a RelTable's contents.
type Data struct {
	Forward    map[uint64]*CsrNodeGroup
	Backward   map[uint64]*CsrNodeGroup
	Properties map[uint64][]types.Value
	NextRelID  uint64
}

// ToData snapshots the table for persistence.
func (t *RelTable) ToData() Data {
	return Data{Forward: t.forward, Backward: t.backward, Properties: t.properties, NextRelID: t.nextRelID}
}

// FromData reconstructs a RelTable from a previously persisted Data
// snapshot plus the current schema, rejecting a snapshot whose CSR
// groups fail their structural invariants or whose recorded NextRelID
// does not exceed every rel ID actually stored in the snapshot — a
// load-time integrity check against a corrupted or hand-edited
// snapshot, rather than trusting it silently.
func FromData(schema *catalog.RelTableSchema, data Data) (*RelTable, error) {
	t := New(schema)
	if data.Forward != nil {
		t.forward = data.Forward
	}
	if data.Backward != nil {
		t.backward = data.Backward
	}
	if data.Properties != nil {
		t.properties = data.Properties
	}
	t.nextRelID = data.NextRelID

	for _, g := range t.forward {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	for _, g := range t.backward {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	if err := checkNextRelID(t.forward, t.nextRelID); err != nil {
		return nil, err
	}
	if err := checkNextRelID(t.backward, t.nextRelID); err != nil {
		return nil, err
	}
	return t, nil
}

// checkNextRelID verifies that nextRelID exceeds every rel ID recorded
// in groups' RelIDs slices.
func checkNextRelID(groups map[uint64]*CsrNodeGroup, nextRelID uint64) error {
	for _, g := range groups {
		for _, relID := range g.RelIDs {
			if relID >= nextRelID {
				return engineerr.New(engineerr.KindRelTableCorrupted,
					"group %d: stored rel_id %d does not precede next_rel_id %d", g.GroupID, relID, nextRelID)
			}
		}
	}
	return nil
}

// Encode serializes a Data snapshot for storage via the multipage codec.
func (d Data) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, engineerr.Wrap(engineerr.KindRelTableLoad, err, "encoding relationship table data")
	}
	return buf.Bytes(), nil
}

// DecodeData reconstructs a Data snapshot previously produced by Encode.
func DecodeData(raw []byte) (Data, error) {
	var d Data
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
		return Data{}, engineerr.Wrap(engineerr.KindRelTableLoad, err, "decoding relationship table data")
	}
	return d, nil
}
