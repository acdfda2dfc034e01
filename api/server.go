package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"feed_importer/countries"
	"feed_importer/services"
)

// Server is the REST surface over the import pipeline.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	Health         Pinger // optional catalog check behind /healthz
}

func NewServer(cfg ServerConfig, importer *services.Importer, profiles *countries.Table, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	handlers := NewHandlers(importer, profiles)
	if cfg.Health != nil {
		handlers.SetPinger(cfg.Health)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg, handlers, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the chi router. Exposed so tests can drive it through httptest.
func NewRouter(cfg ServerConfig, h *Handlers, logger *slog.Logger) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", h.Parse)
		r.Get("/formats", h.ListFormats)
		r.Get("/countries", h.ListCountries)
		r.Get("/countries/{code}/formats", h.CountryFormats)
		r.Post("/tenants/{tenantID}/imports", h.Import)
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Info("starting api server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping api server")
	return s.httpServer.Shutdown(ctx)
}
