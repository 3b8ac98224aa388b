package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.registrar, s.verifier, s.store, s.config.Web.UploadMaxBytes, s.log)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1/faces/{employeeID}", func(r chi.Router) {
		r.Post("/register", facesHandler.Register)
		r.Post("/match", facesHandler.Match)
		r.Get("/exists", facesHandler.Exists)
	})
}
