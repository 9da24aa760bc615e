// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: New opens the store, builds the verifier,
// limiter, service and handlers, and wires them to routes. main.go only
// loads configuration and calls Start.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/alert-dashboard/internal/auth"
	"github.com/sakif/alert-dashboard/internal/config"
	"github.com/sakif/alert-dashboard/internal/handler"
	"github.com/sakif/alert-dashboard/internal/middleware"
	"github.com/sakif/alert-dashboard/internal/ratelimit"
	"github.com/sakif/alert-dashboard/internal/repository"
	pgRepo "github.com/sakif/alert-dashboard/internal/repository/postgres"
	sqliteRepo "github.com/sakif/alert-dashboard/internal/repository/sqlite"
	"github.com/sakif/alert-dashboard/internal/service"
)

// Server represents the HTTP server and everything it owns. The store and,
// when configured, the Redis client are closed on shutdown.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      repository.ConfigRepository
	limiter ratelimit.Limiter
	closers []io.Closer
}

// New opens the configured store and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg.Telegram.BotToken, auth.WithMaxAge(cfg.Telegram.InitDataMaxAge))
	if err != nil {
		return nil, fmt.Errorf("creating verifier: %w", err)
	}

	db, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		closers: []io.Closer{db},
	}

	limiter, err := s.newLimiter(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	s.limiter = limiter

	s.setupRoutes(verifier)
	return s, nil
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (repository.ConfigRepository, error) {
	if cfg.UsePostgres() {
		db, err := pgRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		logger.Info("using postgres store")
		return db, nil
	}

	// os.MkdirAll is like `mkdir -p`; the data directory may not exist on
	// the first run.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
	return db, nil
}

func (s *Server) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	rl := s.config.RateLimit
	if rl.RedisURL == "" {
		return ratelimit.NewLocal(rl.RPS, rl.Burst), nil
	}

	// The Redis limiter counts per minute: the steady rate plus one burst.
	r, err := ratelimit.NewRedis(ctx, ratelimit.RedisConfig{
		URL:   rl.RedisURL,
		Limit: int64(rl.RPS*60) + int64(rl.Burst),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting rate limiter: %w", err)
	}
	s.closers = append(s.closers, r)
	s.logger.Info("using redis rate limiter")
	return r, nil
}

// setupRoutes configures all middleware and route handlers.
//
//	GET /health              → store health, no auth
//	    /api/*               → RequireInitData → RateLimit → ConfigHandler
//
// MIDDLEWARE ORDER MATTERS: RequestID must run before Logger so the log
// line carries it; Recoverer sits inside Logger so a panic is logged as 500.
func (s *Server) setupRoutes(verifier *auth.Verifier) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	health := handler.NewHealthHandler(s.db, s.logger)
	s.router.Get("/health", health.HandleHealth)

	configService := service.NewConfigService(s.db, s.logger)
	configHandler := handler.NewConfigHandler(configService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireInitData(verifier, s.logger))
		r.Use(middleware.RateLimit(s.limiter, s.logger))
		r.Mount("/", configHandler.Routes())
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (ShutdownTimeout)
//  3. Close the store and the Redis client
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.HTTP.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// close releases everything New opened, newest first.
func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}
