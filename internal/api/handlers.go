package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/parser"
	"github.com/starford/graphflow/internal/registry"
	"github.com/starford/graphflow/internal/workflow"
)

// Handler serves the registry routes the editor talks to.
type Handler struct {
	reg *registry.Service
}

// NewHandler creates a new Handler.
func NewHandler(reg *registry.Service) *Handler {
	return &Handler{reg: reg}
}

// Procedures handles GET /api/gaf.
//
//	@Summary		List graph-domain procedure keys
//	@Tags			registry
//	@Produce		json
//	@Success		200	{array}	string
//	@Security		BearerAuth
//	@Router			/gaf [get]
func (h *Handler) Procedures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Procedures(r.Context()))
}

// ConfigSchema handles GET /api/configs/{key}.
//
//	@Summary		Get the config schema of a procedure
//	@Tags			registry
//	@Produce		json
//	@Param			key	path		string	true	"Procedure key"
//	@Success		200	{object}	object
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/configs/{key} [get]
func (h *Handler) ConfigSchema(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	raw, err := h.reg.ConfigSchema(r.Context(), key)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported procedure: "+key))
		return
	}
	if err != nil {
		writeError(w, "config schema", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// GetTransformation handles GET /api/transformation?id=.
//
//	@Summary		Get a workflow record
//	@Tags			registry
//	@Produce		json
//	@Param			id	query		string	true	"Resource id"
//	@Success		200	{object}	workflow.Record
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transformation [get]
func (h *Handler) GetTransformation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reg.Transformation(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, "get transformation", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SaveTransformation handles POST /api/transformation.
// The response body is the resource id as plain text.
//
//	@Summary		Create or replace a workflow record
//	@Tags			registry
//	@Accept			json
//	@Produce		plain
//	@Param			body	body		workflow.Record	true	"Workflow record"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transformation [post]
func (h *Handler) SaveTransformation(w http.ResponseWriter, r *http.Request) {
	var rec workflow.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	id, err := h.reg.SaveTransformation(r.Context(), &rec)
	if err != nil {
		writeError(w, "save transformation", err)
		return
	}
	writeText(w, http.StatusOK, id)
}

// ListTransformations handles GET /api/transformations.
//
//	@Summary		List workflow records keyed by resource id
//	@Tags			registry
//	@Produce		json
//	@Success		200	{object}	map[string]workflow.Record
//	@Security		BearerAuth
//	@Router			/transformations [get]
func (h *Handler) ListTransformations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.reg.Transformations(r.Context())
	if err != nil {
		writeError(w, "list transformations", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ListGraphs handles GET /api/graphs.
//
//	@Summary		List registered graphs keyed by resource id
//	@Tags			registry
//	@Produce		json
//	@Success		200	{object}	map[string]GraphSource
//	@Security		BearerAuth
//	@Router			/graphs [get]
func (h *Handler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.reg.Graphs(r.Context())
	if err != nil {
		writeError(w, "list graphs", err)
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

// RegisterGraph handles POST /api/graph. It accepts a JSON descriptor, or a
// YAML one when the content type says so.
//
//	@Summary		Register a graph source
//	@Tags			registry
//	@Accept			json
//	@Produce		plain
//	@Param			body	body		GraphSource	true	"Graph descriptor"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [post]
func (h *Handler) RegisterGraph(w http.ResponseWriter, r *http.Request) {
	var src GraphSource
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("cannot read body"))
			return
		}
		parsed, err := parser.Parse("", data)
		if err != nil {
			writeError(w, "register graph", err)
			return
		}
		src = *parsed
	} else if !decodeJSON(w, r, &src) {
		return
	}
	id, err := h.reg.RegisterGraph(r.Context(), &src)
	if err != nil {
		writeError(w, "register graph", err)
		return
	}
	writeText(w, http.StatusOK, id)
}
