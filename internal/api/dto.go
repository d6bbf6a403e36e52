package api

import (
	"github.com/starford/graphflow/internal/dnd"
	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/graph"
	"github.com/starford/graphflow/internal/models"
)

// GraphSource is a registered graph descriptor.
type GraphSource = models.GraphSource

// CreateSessionRequest is the request body for opening an editor session.
type CreateSessionRequest struct {
	// WorkflowID, when set, loads an existing workflow into the session.
	WorkflowID string `json:"workflow_id,omitempty" example:"default/Transformation/WORKFLOW1700000000000"`
}

// SessionResponse describes an editor session.
type SessionResponse struct {
	ID       string         `json:"id" validate:"required"`
	Workflow string         `json:"workflow,omitempty"`
	Snapshot graph.Snapshot `json:"snapshot" validate:"required"`
}

// SessionListResponse wraps the open sessions.
type SessionListResponse struct {
	Sessions []editor.SessionInfo `json:"sessions" validate:"required"`
}

// AddInputRequest places a graph source on the canvas.
type AddInputRequest struct {
	ID       string         `json:"id" example:"default/Graph/reviews" validate:"required"`
	Position graph.Position `json:"position"`
}

// InputsResponse lists the input candidates.
type InputsResponse struct {
	Inputs []graph.Input `json:"inputs" validate:"required"`
}

// DragRequest starts dragging a capability out of a node's menu.
type DragRequest struct {
	Upstream string    `json:"upstream" example:"default/Graph/reviews" validate:"required"`
	Key      string    `json:"key" example:"page_rank" validate:"required"`
	Pointer  dnd.Point `json:"pointer"`
	Control  dnd.Rect  `json:"control"`
}

// DropRequest drops a drag payload onto the canvas. A missing payload is a
// drop without transfer data and is ignored.
type DropRequest struct {
	Payload *dnd.Payload `json:"payload"`
	Client  dnd.Point    `json:"client"`
}

// UpdateNodeRequest repositions a node and/or sets its selection flag.
type UpdateNodeRequest struct {
	Position *graph.Position `json:"position,omitempty"`
	Selected *bool           `json:"selected,omitempty"`
}

// NodeConfigResponse is the saved configuration of a node.
type NodeConfigResponse struct {
	Node string `json:"node"`
	// State is "not_loaded", "loaded" or "restored".
	State  string         `json:"state"`
	Values map[string]any `json:"values,omitempty"`
}

// OpenFormRequest opens the configuration form of a node.
type OpenFormRequest struct {
	Node string `json:"node" example:"default/Graph/reviews/page_rank" validate:"required"`
}

// SetFormValuesRequest edits form fields. A null value clears the field.
type SetFormValuesRequest struct {
	Values map[string]any `json:"values" validate:"required"`
}

// SavedValuesResponse is returned after a form save.
type SavedValuesResponse struct {
	Node   string         `json:"node"`
	Values map[string]any `json:"values"`
}

// LoadRequest loads a workflow into a session.
type LoadRequest struct {
	ID string `json:"id" example:"default/Transformation/flow" validate:"required"`
}
