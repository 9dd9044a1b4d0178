package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pdfarchiver/internal/archive"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *archive.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.ImportDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)
	r.Get("/suggestions/*", h.Suggest)
	r.Get("/raw/*", h.RawDocument)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/search/content", h.SearchContent)
	r.Get("/tags", h.Tags)

	// Naming convention.
	r.Post("/parse", h.Parse)
	r.Post("/filename", h.CreateFilename)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
