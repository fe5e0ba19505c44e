package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/redgrabba/internal/api/handler"
	mw "github.com/iconidentify/redgrabba/internal/api/middleware"
	"github.com/iconidentify/redgrabba/internal/config"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	cfg config.ServerConfig,
	mediaHandler *handler.MediaHandler,
	historyHandler *handler.HistoryHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Deadline(cfg.RequestTimeout))
	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Web UI
	r.Get("/", uiHandler.Index)

	// Grab: JSON for the page script, HTML fragment for plain forms
	r.Post("/get_video", mediaHandler.GetVideo)
	r.Post("/preview", mediaHandler.Preview)

	// Stored videos
	r.Get("/download/{id}", mediaHandler.Download)
	r.Get("/static/{filename}", mediaHandler.Static)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", healthHandler.Stats)
		r.Get("/history", historyHandler.List)
	})

	return r
}
