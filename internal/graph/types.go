// Package graph holds the canvas graph of the workflow editor: nodes, edges and the viewport.
package graph

// NodeKind is the canvas node type.
type NodeKind string

// Node kinds.
const (
	KindSource    NodeKind = "source"
	KindProcedure NodeKind = "procedure"
	KindSink      NodeKind = "sink"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindSource, KindProcedure, KindSink:
		return true
	}
	return false
}

// Connection point labels.
const (
	HandleRight  = "r"
	HandleLeft   = "l"
	HandleTop    = "t"
	HandleBottom = "b"
)

// Procedure is one entry of a node's capability menu: an operation that can be attached downstream.
type Procedure struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// OutputNodeType is the kind of node created when this entry is dropped.
	OutputNodeType NodeKind `json:"outputNodeType"`
}

// Position is a point in canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the kind-specific payload of a node.
//
// Source nodes use Label and ProcedureList. Procedure nodes use every field.
// Sink nodes use Label, Width and Upstream only.
type NodeData struct {
	Label         string      `json:"label"`
	IsQuery       bool        `json:"isQuery,omitempty"`
	Width         float64     `json:"width,omitempty"`
	Upstream      string      `json:"upstream,omitempty"`
	ProcedureList []Procedure `json:"procedureList,omitempty"`
}

// Node is a value-typed canvas node. Upstream links are ids, never pointers.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeKind `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
	Selected bool     `json:"selected,omitempty"`
}

// Marker is an edge terminator.
type Marker struct {
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

// EdgeStyle is the stroke style of an edge.
type EdgeStyle struct {
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
}

// Edge is a directed link between two nodes.
type Edge struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	SourceHandle string     `json:"sourceHandle,omitempty"`
	TargetHandle string     `json:"targetHandle,omitempty"`
	Animated     bool       `json:"animated,omitempty"`
	MarkerEnd    *Marker    `json:"markerEnd,omitempty"`
	Style        *EdgeStyle `json:"style,omitempty"`
}

// MarkerArrowClosed is the closed-arrow terminator type.
const MarkerArrowClosed = "arrowclosed"

// EdgeID returns the canonical id of an edge between the given nodes and handles.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return "reactflow__edge-" + source + sourceHandle + "-" + target + targetHandle
}

// NewFlowEdge builds the animated, closed-arrow edge used when a drop creates a node.
func NewFlowEdge(source, target string) Edge {
	return Edge{
		ID:           EdgeID(source, HandleRight, target, HandleLeft),
		Source:       source,
		Target:       target,
		SourceHandle: HandleRight,
		TargetHandle: HandleLeft,
		Animated:     true,
		MarkerEnd:    &Marker{Type: MarkerArrowClosed, Color: "black"},
		Style:        &EdgeStyle{StrokeWidth: 1, Stroke: "black"},
	}
}

// Viewport is the canvas pan offset and zoom factor.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the origin at zoom 1.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Project maps a point relative to the canvas' top-left corner into canvas coordinates.
func (v Viewport) Project(x, y float64) Position {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return Position{X: (x - v.X) / zoom, Y: (y - v.Y) / zoom}
}

// Snapshot is the full, serializable state of the canvas.
type Snapshot struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Viewport Viewport `json:"viewport"`
}
