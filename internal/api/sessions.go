package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphflow/internal/dnd"
	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/graph"
)

// SessionHandler serves the editor session routes.
type SessionHandler struct {
	mgr *editor.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(mgr *editor.Manager) *SessionHandler {
	return &SessionHandler{mgr: mgr}
}

// nodePath extracts a node id from the URL wildcard. Node ids contain '/',
// and encoded slashes from OpenAPI clients are decoded too.
func nodePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	s, err := h.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

func sessionResponse(s *editor.Session) SessionResponse {
	return SessionResponse{ID: s.ID(), Workflow: s.WorkflowID(), Snapshot: s.Snapshot()}
}

// Create handles POST /api/sessions.
//
//	@Summary		Open an editor session, optionally loading a workflow
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	false	"Session options"
//	@Success		201		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.mgr.Create(r.Context(), req.WorkflowID)
	if err != nil {
		writeError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(s))
}

// List handles GET /api/sessions.
//
//	@Summary		List open editor sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *SessionHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: h.mgr.List()})
}

// Get handles GET /api/sessions/{id}.
//
//	@Summary		Get the canvas of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

// Close handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inputs handles GET /api/sessions/{id}/inputs.
//
//	@Summary		List input candidates and whether they are on the canvas
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	InputsResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/inputs [get]
func (h *SessionHandler) Inputs(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.LoadInputs(r.Context()); err != nil {
			writeError(w, "load inputs", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, InputsResponse{Inputs: s.Inputs()})
}

// AddInput handles POST /api/sessions/{id}/inputs.
//
//	@Summary		Place a graph source on the canvas
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		AddInputRequest	true	"Input"
//	@Success		201		{object}	graph.Node
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/inputs [post]
func (h *SessionHandler) AddInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddInputRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.AddInput(req.ID, req.Position)
	if err != nil {
		writeError(w, "add input", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Drag handles POST /api/sessions/{id}/drag. The returned payload is what
// the client hands back on drop.
//
//	@Summary		Start dragging a capability out of a node menu
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		DragRequest	true	"Drag start"
//	@Success		200		{object}	dnd.Payload
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/drag [post]
func (h *SessionHandler) Drag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.DragStart(req.Upstream, req.Key, req.Pointer, req.Control)
	if err != nil {
		writeError(w, "drag start", err)
		return
	}
	p, _ := t.Take()
	writeJSON(w, http.StatusOK, p)
}

// Drop handles POST /api/sessions/{id}/drop.
//
//	@Summary		Drop a drag payload onto the canvas
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		DropRequest	true	"Drop"
//	@Success		200		{object}	editor.DropResult
//	@Security		BearerAuth
//	@Router			/sessions/{id}/drop [post]
func (h *SessionHandler) Drop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DropRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev := dnd.DropEvent{Client: req.Client}
	if req.Payload != nil {
		ev.Transfer = &dnd.Transfer{}
		ev.Transfer.Set(*req.Payload)
	}
	res, err := s.Drop(r.Context(), ev)
	if err != nil {
		writeError(w, "drop", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateNode handles PATCH /api/sessions/{id}/nodes/*.
//
//	@Summary		Move a node or change its selection
//	@Tags			sessions
//	@Accept			json
//	@Param			id		path	string				true	"Session id"
//	@Param			node	path	string				true	"Node id"
//	@Param			body	body	UpdateNodeRequest	true	"Changes"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/nodes/{node} [patch]
func (h *SessionHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := nodePath(r)
	if req.Position != nil {
		if err := s.MoveNode(id, *req.Position); err != nil {
			writeError(w, "move node", err)
			return
		}
	}
	if req.Selected != nil {
		s.SelectNode(id, *req.Selected)
	}
	w.WriteHeader(http.StatusNoContent)
}

// NodeConfig handles GET /api/sessions/{id}/configs/*.
//
//	@Summary		Get the saved configuration of a node
//	@Tags			forms
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Param			node	path		string	true	"Node id"
//	@Success		200		{object}	NodeConfigResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/configs/{node} [get]
func (h *SessionHandler) NodeConfig(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := nodePath(r)
	values, _ := s.ConfigValues(id)
	writeJSON(w, http.StatusOK, NodeConfigResponse{
		Node:   id,
		State:  s.ConfigState(id).String(),
		Values: values,
	})
}

// RemoveNode handles DELETE /api/sessions/{id}/nodes/*.
//
//	@Summary		Remove a node and its edges
//	@Tags			sessions
//	@Param			id		path	string	true	"Session id"
//	@Param			node	path	string	true	"Node id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/nodes/{node} [delete]
func (h *SessionHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveNode(nodePath(r)); err != nil {
		writeError(w, "remove node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetViewport handles PUT /api/sessions/{id}/viewport.
//
//	@Summary		Set the canvas pan and zoom
//	@Tags			sessions
//	@Accept			json
//	@Param			id		path	string			true	"Session id"
//	@Param			body	body	graph.Viewport	true	"Viewport"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/sessions/{id}/viewport [put]
func (h *SessionHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var v graph.Viewport
	if !decodeJSON(w, r, &v) {
		return
	}
	if v.Zoom <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("zoom must be positive"))
		return
	}
	s.SetViewport(v)
	w.WriteHeader(http.StatusNoContent)
}

// SetCanvas handles PUT /api/sessions/{id}/canvas.
//
//	@Summary		Set the on-screen bounds of the canvas
//	@Tags			sessions
//	@Accept			json
//	@Param			id		path	string		true	"Session id"
//	@Param			body	body	dnd.Rect	true	"Bounds"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/sessions/{id}/canvas [put]
func (h *SessionHandler) SetCanvas(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var rect dnd.Rect
	if !decodeJSON(w, r, &rect) {
		return
	}
	s.SetCanvasBounds(rect)
	w.WriteHeader(http.StatusNoContent)
}

// GetForm handles GET /api/sessions/{id}/form.
//
//	@Summary		Get the configuration form state
//	@Tags			forms
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	editor.FormView
//	@Security		BearerAuth
//	@Router			/sessions/{id}/form [get]
func (h *SessionHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Form())
}

// OpenForm handles POST /api/sessions/{id}/form.
//
//	@Summary		Open the configuration form of a node
//	@Tags			forms
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		OpenFormRequest	true	"Node"
//	@Success		200		{object}	editor.FormView
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/form [post]
func (h *SessionHandler) OpenForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req OpenFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.OpenConfig(r.Context(), req.Node); err != nil {
		writeError(w, "open form", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Form())
}

// SetFormValues handles PATCH /api/sessions/{id}/form.
//
//	@Summary		Edit fields of the open form
//	@Tags			forms
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session id"
//	@Param			body	body		SetFormValuesRequest	true	"Values"
//	@Success		200		{object}	editor.FormView
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/form [patch]
func (h *SessionHandler) SetFormValues(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SetFormValuesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for name, v := range req.Values {
		if err := s.SetConfigValue(name, v); err != nil {
			writeError(w, "set form value", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Form())
}

// SaveForm handles POST /api/sessions/{id}/form/save.
//
//	@Summary		Validate and store the open form
//	@Tags			forms
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SavedValuesResponse
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/form/save [post]
func (h *SessionHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	target := s.Form().Target
	values, err := s.SaveConfig()
	if err != nil {
		writeError(w, "save form", err)
		return
	}
	writeJSON(w, http.StatusOK, SavedValuesResponse{Node: target, Values: values})
}

// CancelForm handles DELETE /api/sessions/{id}/form.
//
//	@Summary		Close the form without saving
//	@Tags			forms
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/sessions/{id}/form [delete]
func (h *SessionHandler) CancelForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.CancelConfig()
	w.WriteHeader(http.StatusNoContent)
}

// Save handles POST /api/sessions/{id}/save.
//
//	@Summary		Serialize the session and store it as a workflow
//	@Tags			workflows
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	editor.SaveResult
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := s.Save(r.Context())
	if err != nil {
		writeError(w, "save workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Load handles POST /api/sessions/{id}/load.
//
//	@Summary		Replace the session canvas with a stored workflow
//	@Tags			workflows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		LoadRequest	true	"Workflow"
//	@Success		200		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/load [post]
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Load(r.Context(), req.ID); err != nil {
		writeError(w, "load workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}
