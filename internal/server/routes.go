package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(s.withRequestLogging)
	r.Use(middleware.Recoverer)

	// Health check and info.
	r.Get("/health", s.handleHealth)
	r.Get("/api/info", s.handleInfo)

	// Notes.
	r.Get("/api/notes", s.handleListNotes)
	r.Get("/api/notes/{id}", s.handleGetNote)

	// Mutations are rate limited per client.
	r.Group(func(r chi.Router) {
		r.Use(s.withWriteRateLimit)
		r.Post("/api/notes", s.handleUpsertNote)
		r.Delete("/api/notes/{id}", s.handleDeleteNote)
	})

	return r
}
