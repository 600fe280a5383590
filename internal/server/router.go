package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memento-ai/mementod/internal/api"
	"github.com/memento-ai/mementod/internal/api/handlers"
	"github.com/memento-ai/mementod/internal/api/middleware"
)

type RouterConfig struct {
	IngestHandler *handlers.IngestHandler
	SearchHandler *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ingest", cfg.IngestHandler.Ingest)
	r.Get("/search", cfg.SearchHandler.Search)

	return r
}
