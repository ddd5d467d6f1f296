package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/outline/internal/nodeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *nodeservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", h.ListNodes)
		r.Post("/", h.CreateNode)
		r.Get("/{id}", h.GetNode)
		r.Put("/{id}", h.UpdateNode)
		r.Delete("/{id}", h.DeleteNode)
		r.Post("/{id}/move", h.MoveNode)
	})

	r.Get("/forest", h.Forest)
	r.Get("/search", h.Search)

	// Markdown vault.
	r.Get("/exports", h.ListExports)
	r.Post("/exports", h.Export)
	r.Get("/exports/*", h.DownloadExport)
	r.Post("/imports", h.Import)
	r.Post("/imports/upload", h.UploadImport)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
