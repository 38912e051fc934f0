// Package api exposes the collection tracker over REST.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/metrics"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/collection"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	addr       string
	logger     *zap.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	collection   *collection.Service
	sets         repository.SetRepository
	synchronizer *catalog.Synchronizer
	sourcePath   string
}

// Config holds configuration for the API server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// SourcePath is the catalog source file the sync endpoint reads.
	SourcePath string

	// RateLimit is the per-IP request rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int
}

// NewServer creates the API server over the given services.
func NewServer(
	cfg Config,
	coll *collection.Service,
	sets repository.SetRepository,
	synchronizer *catalog.Synchronizer,
	logger *zap.Logger,
) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		router:       chi.NewRouter(),
		addr:         cfg.Addr,
		logger:       logger,
		registry:     registry,
		metrics:      metrics.New(registry),
		collection:   coll,
		sets:         sets,
		synchronizer: synchronizer,
		sourcePath:   cfg.SourcePath,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()
	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Use(s.metrics.Middleware(routePattern))

	if cfg.RateLimit > 0 {
		s.router.Use(newIPRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware)
	}

	s.router.Use(jsonContentType)
}

// requestLogger logs every request with its route, status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// jsonContentType enforces application/json on requests with bodies.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength > 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// routePattern maps a request to its chi route pattern, keeping the
// metric label space bounded.
func routePattern(r *http.Request) string {
	if rp := chi.RouteContext(r.Context()).RoutePattern(); rp != "" {
		return rp
	}
	return r.URL.Path
}

// Start starts the API server in a goroutine.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info("api server starting", zap.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
