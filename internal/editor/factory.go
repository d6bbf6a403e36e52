// Package editor implements the workflow graph editor: node creation from
// palette drops, per-node configuration, and saving/loading workflows.
package editor

import (
	"github.com/starford/graphflow/internal/dnd"
	"github.com/starford/graphflow/internal/graph"
	"github.com/starford/graphflow/internal/palette"
)

// queryKeys are procedures whose body is free-text transformation logic.
var queryKeys = map[string]bool{
	"cypher":    true,
	"select":    true,
	"aggregate": true,
	"filter":    true,
}

// IsQuery reports whether procedure key takes a raw query body.
func IsQuery(key string) bool {
	return queryKeys[key]
}

// Factory creates nodes with the right capability menu attached.
type Factory struct {
	palette *palette.Provider
}

// NewFactory creates a factory reading capability lists from p.
func NewFactory(p *palette.Provider) *Factory {
	return &Factory{palette: p}
}

// Source creates a source node for a graph resource. Its menu is the graph
// domain list known at creation time, possibly empty.
func (f *Factory) Source(resourceID string, pos graph.Position) graph.Node {
	return graph.Node{
		ID:       resourceID,
		Type:     graph.KindSource,
		Position: pos,
		Data: graph.NodeData{
			Label:         resourceID,
			ProcedureList: f.palette.Known(palette.DomainGraph),
		},
	}
}

// FromPayload creates the node described by a drop. Sink nodes carry only
// label, width and upstream; procedure nodes also get the tabular menu plus
// the export capability.
func (f *Factory) FromPayload(p dnd.Payload, pos graph.Position) graph.Node {
	n := graph.Node{
		ID:       p.NodeID(),
		Type:     p.NodeType,
		Position: pos,
		Data: graph.NodeData{
			Label:    palette.Label(p.Key),
			Width:    p.Width,
			Upstream: p.Upstream,
		},
	}
	if p.NodeType == graph.KindSink {
		return n
	}
	n.Data.IsQuery = IsQuery(p.Key)
	n.Data.ProcedureList = f.palette.Downstream(palette.DomainTabular)
	return n
}
