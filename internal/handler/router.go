package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/middleware"
	"github.com/BuzzLyutic/taskflow-api/internal/ratelimit"
)

// NewRouter wires the request pipeline: body cap, auth, rate limit, then
// the task handlers. /health sits outside auth and rate limiting.
func NewRouter(h *TaskHandler, limiter *ratelimit.Limiter, logger *zap.Logger, maxBodyBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.RequestSize(maxBodyBytes))
		r.Use(middleware.Auth)
		r.Use(middleware.RateLimit(limiter, logger.Named("ratelimit")))

		r.Get("/stats", h.Stats)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})

	return r
}
