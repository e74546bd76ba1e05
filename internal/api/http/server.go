// Package httpapi exposes the engine over HTTP. Routes are scoped per
// organization; every handler answers with a structured status object,
// never a raw error.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/execdesk/execdesk/internal/app"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	app *app.App
}

// NewServer creates the HTTP server facade.
func NewServer(a *app.App) *Server {
	return &Server{app: a}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/v1/orgs/{org}", func(r chi.Router) {
		r.Use(s.requireOrg)

		// The event stream stays open indefinitely; everything else gets
		// the request timeout.
		r.Get("/stream", s.stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(120 * time.Second))

			r.Post("/cycle", s.runCycle)
			r.Post("/plan", s.planDay)
			r.Post("/events", s.ingestEvent)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/tree", s.taskTree)
				r.Get("/awaiting-review", s.awaitingReview)
				r.Post("/{taskId}/review", s.reviewTask)
				r.Post("/{taskId}/done", s.markDone)
				r.Post("/{taskId}/subtasks", s.createSubtask)
			})

			r.Route("/kpi", func(r chi.Router) {
				r.Post("/readings", s.recordReading)
				r.Get("/trends", s.trends)
			})

			r.Get("/staff", s.staff)
			r.Get("/learning", s.learningPatterns)
			r.Get("/journal/summary", s.journalSummary)
		})
	})

	return r
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
