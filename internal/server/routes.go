package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venuechat/internal/handlers/api"
	"venuechat/internal/middleware"
)

// Deps are the collaborators routes are wired to.
type Deps struct {
	Venues api.VenueFinder
	Store  api.Pinger
	// Verifier enables bearer auth on /api when set.
	Verifier middleware.TokenVerifier
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Deps) {
	venueHandler := api.NewVenueHandler(deps.Venues, s.Log)
	healthHandler := api.NewHealthHandler(deps.Store, s.Log)

	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.App.Group("/api/v1")
	if deps.Verifier != nil {
		auth := middleware.NewAuthMiddleware(deps.Verifier, s.Log)
		v1.Use(auth.RequireToken)
	} else {
		s.Log.Warn("OIDC issuer not configured; venue API is unauthenticated")
	}

	v1.Get("/venues/nearby", venueHandler.Nearby)
	v1.Get("/venues/nearby/rooms", venueHandler.NearbyWithRooms)
	v1.Get("/venues/:id", venueHandler.Get)
	v1.Get("/venues", venueHandler.List)

	s.App.Use(func(c fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}
