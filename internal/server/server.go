// Package server exposes the live catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/exocat/internal/live"
	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/internal/watch"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by New.
const (
	DefaultAddr      = "127.0.0.1:8470"
	DefaultMaxConns  = 64
	DefaultMaxUpload = 64 << 20
	DefaultLimit     = 100
	MaxLimit         = 1000
)

const sessionName = "exocat"

// Config holds configuration for the server.
type Config struct {
	Addr          string
	Catalog       *live.Catalog
	Resolver      *source.Resolver
	Store         *store.Store // optional; every replacement is saved when set
	SessionSecret string
	MaxConns      int
	MaxUpload     int64
	// WatchPath enables reloading the catalog whenever this file changes.
	WatchPath string
	Logger    *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	addr         string
	catalog      *live.Catalog
	resolver     *source.Resolver
	store        *store.Store
	sessionStore *sessions.CookieStore
	maxConns     int
	maxUpload    int64
	watchPath    string
	logger       *slog.Logger
}

// New creates a server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		addr:         cfg.Addr,
		catalog:      cfg.Catalog,
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		sessionStore: sessionStore,
		maxConns:     cfg.MaxConns,
		maxUpload:    cfg.MaxUpload,
		watchPath:    cfg.WatchPath,
		logger:       logger,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.maxConns <= 0 {
		s.maxConns = DefaultMaxConns
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}
	if s.catalog == nil {
		s.catalog = live.New(nil, nil, logger)
	}
	if s.resolver == nil {
		s.resolver = source.NewResolver("", logger)
	}
	return s
}

// Catalog returns the live catalog the server reads from.
func (s *Server) Catalog() *live.Catalog { return s.catalog }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/dataset", s.handleDataset)
		r.Post("/dataset", s.handleUpload)
		r.Post("/dataset/sample/{name}", s.handleSample)
		r.Get("/records", s.handleRecords)
		r.Post("/sort/{key}", s.handleSort)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln, which it closes on return. The watcher, when
// configured, runs alongside the server and both stop together.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchPath != "" {
		w := &watch.Watcher{
			Path:    s.watchPath,
			Load:    s.resolver.Load,
			Replace: func(ds *catalog.Dataset) { s.replace(egctx, ds) },
			Logger:  s.logger,
		}
		eg.Go(func() error {
			return w.Run(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(netutil.LimitListener(ln, s.maxConns)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// replace publishes ds and records it in the store when one is configured.
func (s *Server) replace(ctx context.Context, ds *catalog.Dataset) {
	s.catalog.Replace(ds)
	if s.store == nil {
		return
	}
	if err := s.store.SaveDataset(ctx, ds); err != nil {
		s.logger.Error("failed to save dataset", "id", ds.ID, "error", err)
	}
}
