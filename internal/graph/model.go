package graph

import (
	"fmt"
	"sort"

	"github.com/starford/graphflow/internal/apperr"
)

// Model owns the canvas graph. Nodes are stored by value in creation order and
// looked up through an id -> slice index map.
//
// Model is not safe for concurrent use; the editor session serializes access.
type Model struct {
	nodes    []Node
	index    map[string]int
	edges    []Edge
	viewport Viewport

	// inputs tracks candidate source resources: id -> currently placed on the canvas.
	inputs map[string]bool
}

// New returns an empty model with the default viewport.
func New() *Model {
	return &Model{
		index:    make(map[string]int),
		viewport: DefaultViewport(),
		inputs:   make(map[string]bool),
	}
}

// AddNode inserts n. When a node with the same id exists only its position is
// updated and created is false.
func (m *Model) AddNode(n Node) (created bool) {
	if i, ok := m.index[n.ID]; ok {
		m.nodes[i].Position = n.Position
		return false
	}
	m.index[n.ID] = len(m.nodes)
	m.nodes = append(m.nodes, n)
	return true
}

// AddEdge appends e unless an edge with the same id already exists.
func (m *Model) AddEdge(e Edge) bool {
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.SourceHandle, e.Target, e.TargetHandle)
	}
	for _, existing := range m.edges {
		if existing.ID == e.ID {
			return false
		}
	}
	m.edges = append(m.edges, e)
	return true
}

// MoveNode changes the position of node id. The id never changes.
func (m *Model) MoveNode(id string, pos Position) error {
	i, ok := m.index[id]
	if !ok {
		return fmt.Errorf("graph: move %q: %w", id, apperr.ErrNotFound)
	}
	m.nodes[i].Position = pos
	return nil
}

// SetSelected sets the transient selection flag of node id, if present.
func (m *Model) SetSelected(id string, selected bool) {
	if i, ok := m.index[id]; ok {
		m.nodes[i].Selected = selected
	}
}

// SetProcedureList replaces the capability menu of node id.
func (m *Model) SetProcedureList(id string, list []Procedure) {
	if i, ok := m.index[id]; ok {
		m.nodes[i].Data.ProcedureList = append([]Procedure(nil), list...)
	}
}

// RemoveNode deletes node id together with every edge touching it and marks
// the id as no longer in use in the input tracking.
func (m *Model) RemoveNode(id string) error {
	i, ok := m.index[id]
	if !ok {
		return fmt.Errorf("graph: remove %q: %w", id, apperr.ErrNotFound)
	}
	m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
	m.reindex()

	kept := m.edges[:0]
	for _, e := range m.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	m.edges = kept

	if _, tracked := m.inputs[id]; tracked {
		m.inputs[id] = false
	}
	return nil
}

// Node returns a copy of node id.
func (m *Model) Node(id string) (Node, bool) {
	i, ok := m.index[id]
	if !ok {
		return Node{}, false
	}
	return m.nodes[i], true
}

// Has reports whether node id exists.
func (m *Model) Has(id string) bool {
	_, ok := m.index[id]
	return ok
}

// Nodes returns a copy of all nodes in insertion order.
func (m *Model) Nodes() []Node {
	return cloneNodes(m.nodes)
}

// Edges returns a copy of all edges.
func (m *Model) Edges() []Edge {
	return append([]Edge{}, m.edges...)
}

// SetViewport replaces the pan/zoom state.
func (m *Model) SetViewport(v Viewport) {
	m.viewport = v
}

// Viewport returns the pan/zoom state.
func (m *Model) Viewport() Viewport {
	return m.viewport
}

// Snapshot returns a deep copy of nodes, edges and viewport.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Nodes:    cloneNodes(m.nodes),
		Edges:    m.Edges(),
		Viewport: m.viewport,
	}
}

// Restore replaces the whole canvas with s. Input tracking is updated so
// restored source nodes count as in use.
func (m *Model) Restore(s Snapshot) {
	m.nodes = cloneNodes(s.Nodes)
	m.edges = append([]Edge{}, s.Edges...)
	m.viewport = s.Viewport
	m.reindex()
	for id := range m.inputs {
		m.inputs[id] = false
	}
	for _, n := range m.nodes {
		if n.Type == KindSource {
			m.inputs[n.ID] = true
		}
	}
}

// SetInputCandidates registers resource ids that may be added as sources.
// Ids already tracked keep their in-use flag.
func (m *Model) SetInputCandidates(ids []string) {
	for _, id := range ids {
		if _, ok := m.inputs[id]; !ok {
			m.inputs[id] = m.Has(id)
		}
	}
}

// MarkInput sets the in-use flag of input id.
func (m *Model) MarkInput(id string, inUse bool) {
	m.inputs[id] = inUse
}

// InputInUse reports whether input id is tracked and currently placed.
func (m *Model) InputInUse(id string) bool {
	return m.inputs[id]
}

// Input is one candidate source resource.
type Input struct {
	ID    string `json:"id"`
	InUse bool   `json:"in_use"`
}

// Inputs returns the tracked inputs sorted by id.
func (m *Model) Inputs() []Input {
	out := make([]Input, 0, len(m.inputs))
	for id, used := range m.inputs {
		out = append(out, Input{ID: id, InUse: used})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) reindex() {
	m.index = make(map[string]int, len(m.nodes))
	for i, n := range m.nodes {
		m.index[n.ID] = i
	}
}

func cloneNodes(in []Node) []Node {
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = n
		if n.Data.ProcedureList != nil {
			out[i].Data.ProcedureList = append([]Procedure(nil), n.Data.ProcedureList...)
		}
	}
	return out
}
