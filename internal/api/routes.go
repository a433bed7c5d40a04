package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/auth/steam", func(r chi.Router) {
		r.Get("/login", h.SteamLogin)
		r.Get("/return", h.SteamReturn)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(h.sessions))

		r.Get("/me", h.Me)
		r.Get("/library", h.Library)
		r.Post("/library/refresh", h.RefreshLibrary)
		r.Get("/games/{appID}", h.GameDetails)
		r.Put("/games/{appID}/status", h.SetGameStatus)
		r.Delete("/games/{appID}/status", h.RemoveGameStatus)
		r.Get("/status", h.Statuses)
		r.Get("/recommendations", h.Recommendations)
		r.Post("/recommendations/{appID}/feedback", h.RecommendationFeedback)
	})

	return r
}
