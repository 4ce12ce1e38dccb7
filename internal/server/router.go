package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mementolab/recall/internal/api"
	"github.com/mementolab/recall/internal/api/handlers"
	"github.com/mementolab/recall/internal/api/middleware"
)

const defaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	// APIToken guards the /api/v1 routes; an empty token leaves them open.
	APIToken           string
	MaxBodyBytes       int64
	KnowledgeHandler   *handlers.KnowledgeHandler
	SearchHandler      *handlers.SearchHandler
	MaintenanceHandler *handlers.MaintenanceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APIToken != "" {
			r.Use(middleware.TokenAuth(cfg.APIToken))
		}

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Create)
			r.Get("/", cfg.KnowledgeHandler.List)
			r.Get("/{id}", cfg.KnowledgeHandler.Get)
			r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
		})

		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/stats", cfg.MaintenanceHandler.Stats)
		r.Post("/cleanup", cfg.MaintenanceHandler.Cleanup)
	})

	return r
}
