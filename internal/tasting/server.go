package tasting

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	db  DB
	rdb *redis.Client
}

func NewServer(db DB, rdb *redis.Client) *Server {
	return &Server{
		db:  db,
		rdb: rdb,
	}
}

// Router builds the service routes. The auth middleware guards only the
// editor surface; joining a session and answering stay account-free.
func (s *Server) Router(auth func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	// Editor surface: hosts only (X-User-Id set by the auth middleware).
	r.Group(func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}
		r.Get("/editor/{code}", s.handleEditorData)

		r.Post("/packages", s.handleCreatePackage)
		r.Patch("/packages/{id}", s.handlePatchPackage)
		r.Delete("/packages/{id}", s.handleDeletePackage)

		r.Post("/packages/{id}/wines", s.handleCreateWine)
		r.Patch("/wines/{id}", s.handlePatchWine)
		r.Delete("/wines/{id}", s.handleDeleteWine)

		r.Post("/wines/{id}/slides", s.handleCreateSlide)
		r.Post("/wines/{id}/slides/reorder", s.handleReorderSlides)
		r.Patch("/slides/{id}", s.handlePatchSlide)
		r.Delete("/slides/{id}", s.handleDeleteSlide)

		r.Post("/sessions", s.handleCreateSession)
	})

	// Participant surface: joining and answering need no account.
	r.Post("/sessions/{code}/join", s.handleJoinSession)
	r.Post("/sessions/{code}/responses", s.handleSubmitResponse)
	r.Get("/sessions/{id}/participants/{participantId}/summary", s.handleParticipantSummary)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tasting-service",
	})
}
