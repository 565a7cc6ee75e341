package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/core/gate"
	apperrors "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/observability"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
	servermw "github.com/oasislearninghub/oasis/internal/server/middleware"
)

func (s *Server) registerRoutes() {
	health := s.deps.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	if s.cfg.Metrics {
		s.router.Get("/metrics", MetricsHandler)
	}
	if s.cfg.Pprof {
		s.router.Mount("/debug", middleware.Profiler())
	}

	s.router.Route("/v1", func(r chi.Router) {
		if s.clients != nil {
			r.Use(servermw.Ingress(s.clients, servermw.IngressConfig{OnReject: rejectIngress}))
		}

		policies := &handlers.PolicyHandler{Policies: s.deps.Policies}
		r.Get("/policies", policies.List)

		if s.deps.Enrollments != nil {
			enrollments := &handlers.EnrollmentHandler{Store: s.deps.Enrollments}
			r.Get("/enrollments", enrollments.List)
			r.Get("/enrollments/{id}", enrollments.Get)
			r.Get("/enrollments/{id}/receipt", enrollments.Receipt)
		}

		if s.deps.Sessions != nil {
			sessions := &handlers.SessionHandler{Manager: s.deps.Sessions}
			r.Post("/sessions", sessions.Create)
			r.Get("/sessions", sessions.List)
			r.Get("/sessions/{id}", sessions.Get)
			r.Delete("/sessions/{id}", sessions.Delete)
			r.Post("/sessions/{id}/events", sessions.Event)
			r.Method(http.MethodGet, "/sessions/{id}/stream",
				handlers.NewStreamHandler(s.deps.Sessions, observability.ServerLogger))
		}
	})

	s.registerAdminEndpoint()
}

// rejectIngress answers a throttled request with the same wording the
// session gate shows users.
func rejectIngress(w http.ResponseWriter, r *http.Request, retryAfter int) {
	HandleError(w, r, apperrors.NewRateLimitedError(gate.DenialMessage(retryAfter), retryAfter))
}

// registerAdminEndpoint mounts the signal endpoint when a control token is
// configured.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.cfg.ControlToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no control token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.cfg.ControlToken,
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
