// Package http is the local inspector: a small HTTP surface to look at the
// client state and drive the session from scripts.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwrk-planet/chatsync/pkg/httputil"
)

type Deps struct {
	Engine         Engine
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logging)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	h := &Handlers{Engine: d.Engine}

	r.Get("/healthz", h.Health)
	r.Get("/state", h.State)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/groups/{id}/join", h.JoinGroup)
	r.Post("/messages", h.SendMessage)
	r.Post("/messages/{id}/reactions", h.ToggleReaction)
	r.Post("/typing", h.Typing)

	return r
}
