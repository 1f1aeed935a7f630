// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/waypost/internal/config"
	"github.com/jobrunner/waypost/internal/ports/input"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// Server wraps the HTTP server with application handlers.
type Server struct {
	server   *http.Server
	router   *mux.Router
	searcher input.AmenitySearcher
	tiles    input.TileRenderer
	exports  input.ExportManager
	routes   input.RouteRegistrar
	health   input.HealthChecker
	codec    output.TrackCodec
	files    output.FileStore
	logger   *slog.Logger
	config   config.ServerConfig

	metricsHandler http.Handler
	metricsPath    string
	middleware     []mux.MiddlewareFunc
}

// Options holds optional server wiring.
type Options struct {
	MetricsHandler http.Handler
	MetricsPath    string
	Middleware     []mux.MiddlewareFunc
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg config.ServerConfig,
	searcher input.AmenitySearcher,
	tiles input.TileRenderer,
	exports input.ExportManager,
	routes input.RouteRegistrar,
	health input.HealthChecker,
	codec output.TrackCodec,
	files output.FileStore,
	logger *slog.Logger,
	opts Options,
) *Server {
	s := &Server{
		searcher:       searcher,
		tiles:          tiles,
		exports:        exports,
		routes:         routes,
		health:         health,
		codec:          codec,
		files:          files,
		logger:         logger,
		config:         cfg,
		metricsHandler: opts.MetricsHandler,
		metricsPath:    opts.MetricsPath,
		middleware:     opts.Middleware,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	for _, mw := range s.middleware {
		r.Use(mw)
	}

	// Add CORS middleware if configured
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	// Health endpoint
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Route registration (JSON body or GPX upload)
	r.HandleFunc("/routes", s.handleCreateRoute).Methods(http.MethodPost)

	// Search
	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	// Export jobs
	r.HandleFunc("/export/gpx", s.handleSubmitExport).Methods(http.MethodPost)
	r.HandleFunc("/export/status/{jobID}", s.handleExportStatus).Methods(http.MethodGet)

	// Vector tiles
	r.HandleFunc("/mvt/amenities/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}", s.handleTile).Methods(http.MethodGet)

	// Exported files
	r.HandleFunc("/files/{filename}", s.handleFile).Methods(http.MethodGet)

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)

	// Prometheus scrape endpoint
	if s.metricsHandler != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.metricsHandler).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
