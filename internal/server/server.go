package server

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tsp-router/internal/config"
	"tsp-router/internal/database"
	"tsp-router/internal/distance"
	"tsp-router/internal/handlers"
	"tsp-router/internal/logging"
	"tsp-router/internal/planner"
	"tsp-router/web"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	cache      database.DistanceCacheRepository
	listener   net.Listener
	addr       string
	logger     *log.Logger
}

// New creates and initializes a new server (does not start it). The distance
// cache and provider are chosen by cfg.
func New(cfg *config.Config, logger *log.Logger) (*Server, error) {
	logger = logging.OrDefault(logger)

	logger.Info("Initializing distance cache", "backend", cfg.Cache.Backend)
	cache, err := OpenCache(context.Background(), cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg.Provider, cache, logger)
	if err != nil {
		cache.Close()
		return nil, err
	}

	srv, err := NewWithDeps(cfg, cache, provider, logger)
	if err != nil {
		cache.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithDeps creates a server around an existing cache and provider. The
// server owns cache and closes it on Shutdown.
func NewWithDeps(cfg *config.Config, cache database.DistanceCacheRepository, provider distance.Provider, logger *log.Logger) (*Server, error) {
	logger = logging.OrDefault(logger)

	templates, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	handler := &handlers.Handler{
		Planner: planner.New(planner.Options{
			Provider: provider,
			Depot:    cfg.Depot.Address,
			Timeout:  cfg.Provider.Timeout.Duration,
			Logger:   logger,
		}),
		Cache:        cache,
		CacheBackend: cfg.Cache.Backend,
		Templates:    templates,
		Logger:       logger,
	}

	httpLogger := logger.WithPrefix("http")
	router, err := setupRoutes(handler, web.Static, cfg.Server.AllowedOrigins, httpLogger)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Server configured", "config", cfg.String(), "provider", provider.Name())
	return &Server{
		httpServer: httpServer,
		handler:    handler,
		cache:      cache,
		addr:       cfg.Server.Addr,
		logger:     httpLogger,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("Starting server", "addr", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", "err", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server and closes the distance cache
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.cache.Close()
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler, staticFS fs.FS, allowedOrigins []string, logger *log.Logger) (http.Handler, error) {
	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware(allowedOrigins))
	r.Use(middleware.Recoverer)

	r.Get("/", handler.HandleIndexPage)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSubFS))))

	// Original endpoints
	r.Post("/greedy", handler.HandleGreedy)
	r.Post("/kruskal", handler.HandleKruskal)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HandleHealthCheck)
		r.Delete("/cache", handler.HandleClearCache)
		r.Post("/tours/{algorithm}", handler.HandlePlanTour)
		r.Post("/tours/{algorithm}/export", handler.HandleExportTour)
	})

	return r, nil
}
