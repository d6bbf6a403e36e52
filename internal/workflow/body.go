package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/starford/graphflow/internal/graph"
)

// Body is the opaque payload of a record: saved config values per node and the canvas state.
type Body struct {
	Configs map[string]map[string]any `json:"configs"`
	Flow    *graph.Snapshot           `json:"flow,omitempty"`
}

// flowWire decodes a flow with an optional, partially filled viewport.
type flowWire struct {
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
	Viewport *struct {
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
		Zoom *float64 `json:"zoom"`
	} `json:"viewport"`
}

// ParseBody decodes a record body. A missing viewport, or missing viewport
// members, default to the origin at zoom 1.
func ParseBody(s string) (*Body, error) {
	var wire struct {
		Configs map[string]map[string]any `json:"configs"`
		Flow    *flowWire                 `json:"flow"`
	}
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return nil, fmt.Errorf("workflow: decode body: %w", err)
	}
	b := &Body{Configs: wire.Configs}
	if b.Configs == nil {
		b.Configs = make(map[string]map[string]any)
	}
	if wire.Flow != nil {
		snap := graph.Snapshot{
			Nodes:    wire.Flow.Nodes,
			Edges:    wire.Flow.Edges,
			Viewport: graph.DefaultViewport(),
		}
		if snap.Nodes == nil {
			snap.Nodes = []graph.Node{}
		}
		if snap.Edges == nil {
			snap.Edges = []graph.Edge{}
		}
		if vp := wire.Flow.Viewport; vp != nil {
			if vp.X != nil {
				snap.Viewport.X = *vp.X
			}
			if vp.Y != nil {
				snap.Viewport.Y = *vp.Y
			}
			if vp.Zoom != nil {
				snap.Viewport.Zoom = *vp.Zoom
			}
		}
		b.Flow = &snap
	}
	return b, nil
}

// Encode returns the JSON text of b.
func (b *Body) Encode() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("workflow: encode body: %w", err)
	}
	return string(data), nil
}
