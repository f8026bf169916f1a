package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/prospectlens/prospectlens/internal/errors"
	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server/handlers"
	servermw "github.com/prospectlens/prospectlens/internal/server/middleware"
)

// Default HTTP timeouts. Enrichment calls can take most of a minute, so the
// write timeout is generous.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 150 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Options configures the HTTP server.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Prospects backs /api/v1. When nil the API is not mounted.
	Prospects     handlers.Prospects
	PriorityField string
	Statuses      []string

	Health *handlers.HealthManager

	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	opts   Options

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	s.registerRoutes()

	return s
}

func (s *Server) httpServer(addr string) *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       durationOr(s.opts.ReadTimeout, DefaultReadTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(s.opts.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:       durationOr(s.opts.IdleTimeout, DefaultIdleTimeout),
	}
	return s.server
}

// Start listens on the configured address and blocks until the server stops.
// A graceful Shutdown makes it return nil.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := s.httpServer(l.Addr().String())

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", l.Addr().String()))
	}

	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	return srv.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
