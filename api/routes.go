package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	// Middleware stack
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Everything below acts on the calling client's data.
		r.Group(func(r chi.Router) {
			r.Use(ClientIDMiddleware(s.clientName, s.cookies))

			r.Get("/preference", s.handleGetPreference)
			r.Put("/preference", s.handleSavePreference)
			r.Delete("/preference", s.handleRemovePreference)
			r.Post("/preference/validate", s.handleValidatePreference)
			r.Get("/locale", s.handleResolveLocale)

			r.Post("/sync", s.handleSync)
			r.Get("/consistency", s.handleCheckConsistency)
			r.Post("/repair", s.handleRepair)

			r.Get("/usage", s.handleUsage)
			r.Post("/optimize", s.handleOptimize)

			r.Get("/cache", s.handleCacheStatus)
			r.Delete("/cache", s.handleClearCache)
			r.Post("/cache/warm", s.handleWarmCache)
		})
	})
}
