package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sharetube/watchparty/internal/lifecycle"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		ExposedHeaders: []string{requestIdHeader},
	}))

	r.Handle("/metrics", c.metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", c.healthz)
		r.Route("/ws/session/{session-name}", func(r chi.Router) {
			r.Get("/create", c.sessionHandler(lifecycle.Create))
			r.Get("/join", c.sessionHandler(lifecycle.Join))
		})
	})

	return r
}

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(r.Context(), w, http.StatusOK, envelope{"status": "ok"})
}
