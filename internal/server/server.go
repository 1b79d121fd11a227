// Package server exposes the scraped data over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfgrab/shelfgrab/internal/config"
	"github.com/shelfgrab/shelfgrab/internal/scraper"
	"github.com/shelfgrab/shelfgrab/internal/store"
)

// ScrapeRunner runs one scrape request. *scraper.Scraper implements it.
type ScrapeRunner interface {
	Run(ctx context.Context, pageURL, groupName string) (*scraper.Result, error)
}

// Server wires the router, store and scrape pipeline together.
type Server struct {
	cfg     config.ServerConfig
	store   store.Store
	scraper ScrapeRunner
	router  chi.Router
}

// New builds a Server with routing and middleware configured.
func New(cfg config.ServerConfig, st store.Store, sc ScrapeRunner) *Server {
	s := &Server{cfg: cfg, store: st, scraper: sc}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(rateLimiter(cfg.RateLimit, cfg.RateWindowSecs))
		api.Post("/scrape-data", s.handleScrape)
		api.Get("/groups", s.handleListGroups)
		api.Get("/groups/{id}/books", s.handleGroupBooks)
	})

	s.router = r
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		timeout := time.Duration(s.cfg.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
