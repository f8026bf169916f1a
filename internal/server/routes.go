package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server/handlers"
)

// AdminTokenEnv names the variable that enables the admin signal endpoint.
const AdminTokenEnv = "PROSPECTLENS_ADMIN_TOKEN"

func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Method(http.MethodGet, "/metrics", newMetricsProxy())

	if s.opts.Prospects != nil {
		api := &handlers.ProspectHandler{
			Prospects:     s.opts.Prospects,
			PriorityField: s.opts.PriorityField,
			Statuses:      s.opts.Statuses,
		}
		s.router.Route("/api/v1", func(r chi.Router) {
			api.Routes(r)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts POST /admin/signal behind a bearer token.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + AdminTokenEnv + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
