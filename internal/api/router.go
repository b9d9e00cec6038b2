package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/usecase"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ctrl *notes.Controller, uc usecase.NoteUseCases, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctrl, uc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.State)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/new", h.NewNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Post("/notes/{id}/open", h.OpenNote)

	// List events.
	r.Route("/events", func(r chi.Router) {
		r.Post("/toggle-order", h.ToggleOrder)
		r.Post("/order", h.SetOrder)
		r.Post("/delete", h.DeleteNote)
		r.Post("/restore", h.RestoreNote)

		if sseHandler != nil {
			r.Get("/", sseHandler.ServeHTTP)
		}
	})

	return r
}
