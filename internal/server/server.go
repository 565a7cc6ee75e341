package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
	apperrors "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/observability"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
	servermw "github.com/oasislearninghub/oasis/internal/server/middleware"
	"github.com/oasislearninghub/oasis/internal/session"
)

// Config holds listener and ingress settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Ingress IngressConfig

	// ControlToken enables POST /admin/signal when set.
	ControlToken string
	// Metrics mounts the /metrics proxy.
	Metrics bool
	// Pprof mounts net/http/pprof under /debug. Development only.
	Pprof bool
}

// IngressConfig throttles each client before requests reach a session.
type IngressConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	ClientTTL time.Duration
}

// Deps are the services the routes are built on.
type Deps struct {
	Sessions    *session.Manager
	Enrollments handlers.EnrollmentReader
	Policies    ratelimit.Policies
	Health      *handlers.HealthManager
}

// Server represents the HTTP server
type Server struct {
	cfg     Config
	deps    Deps
	router  *chi.Mux
	server  *http.Server
	clients *servermw.ClientLimiters
}

// New creates a new HTTP server instance
func New(cfg Config, deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()

	// Order: RealIP, RequestID, Metrics, Recovery. Recovery sits inside
	// metrics so a panic is still counted as a 500.
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: r,
	}
	if cfg.Ingress.Enabled {
		s.clients = servermw.NewClientLimiters(cfg.Ingress.RPS, cfg.Ingress.Burst, cfg.Ingress.ClientTTL)
	}

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// Start listens until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.server.RegisterOnShutdown(cancel)
	if s.clients != nil {
		s.clients.StartJanitor(ctx, time.Minute)
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", ln.Addr().String()),
			zap.Bool("ingress_limit", s.clients != nil))
	}
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port
func (s *Server) Port() int {
	return s.cfg.Port
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
