package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkdex/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// URL queries.
	r.Get("/matches", h.Matches)
	r.Get("/urls", h.URLs)
	r.Get("/domains", h.Domains)
	r.Get("/domains/{domain}", h.DomainNotes)
	r.Get("/recent", h.Recent)
	r.Get("/explorer/{dimension}", h.Explore)
	r.Get("/stats", h.Stats)

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/move", h.MoveNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
