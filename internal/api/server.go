// Package api provides the HTTP API server and handlers for the tag graph.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kaziapp/taggraph/internal/http/response"
	"github.com/kaziapp/taggraph/internal/metrics"
	"github.com/kaziapp/taggraph/internal/ratelimit"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
)

const eventsPath = "/api/v1/events"

// Options tunes the HTTP surface.
type Options struct {
	Version        string
	RequestTimeout time.Duration
	CORSOrigins    []string
	// RateLimitRPS limits mutating requests per client IP. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	sseManager *sse.Manager
	sseHandler *sse.Handler
	metrics    *metrics.Metrics
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	api        huma.API
	opts       Options
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// sseManager and m may be nil.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		store:      st,
		services:   services,
		sseManager: sseManager,
		metrics:    m,
		router:     chi.NewRouter(),
		opts:       opts,
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(opts.RateLimitRPS, max(opts.RateLimitBurst, 1))
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Tag Graph API", opts.Version)
	humaConfig.Info.Description = "Tags, assignments and typed object relationships"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.metrics != nil {
		s.router.Use(metricsMiddleware(s.metrics))
	}
	if s.opts.RequestTimeout > 0 {
		s.router.Use(timeoutMiddleware(s.opts.RequestTimeout, eventsPath))
	}
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerItemRoutes()
	s.registerTypeRoutes()
	s.registerObjectRoutes()
	s.registerRelationshipRoutes()
	s.registerAdminRoutes()

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
	if s.sseHandler != nil {
		s.router.Get(eventsPath, s.sseHandler.ServeHTTP)
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}
