package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/registry"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// mgr may be nil, in which case only the registry routes are served.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(reg *registry.Service, mgr *editor.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Registry.
	r.Get("/gaf", h.Procedures)
	r.Get("/configs/{key}", h.ConfigSchema)
	r.Get("/transformation", h.GetTransformation)
	r.Post("/transformation", h.SaveTransformation)
	r.Get("/transformations", h.ListTransformations)
	r.Get("/graphs", h.ListGraphs)
	r.Post("/graph", h.RegisterGraph)

	// Editor sessions.
	if mgr != nil {
		sh := NewSessionHandler(mgr)
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sh.List)
			r.Post("/", sh.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sh.Get)
				r.Delete("/", sh.Close)
				r.Get("/inputs", sh.Inputs)
				r.Post("/inputs", sh.AddInput)
				r.Post("/drag", sh.Drag)
				r.Post("/drop", sh.Drop)
				r.Patch("/nodes/*", sh.UpdateNode)
				r.Delete("/nodes/*", sh.RemoveNode)
				r.Put("/viewport", sh.SetViewport)
				r.Put("/canvas", sh.SetCanvas)
				r.Get("/configs/*", sh.NodeConfig)
				r.Get("/form", sh.GetForm)
				r.Post("/form", sh.OpenForm)
				r.Patch("/form", sh.SetFormValues)
				r.Post("/form/save", sh.SaveForm)
				r.Delete("/form", sh.CancelForm)
				r.Post("/save", sh.Save)
				r.Post("/load", sh.Load)
			})
		})
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
