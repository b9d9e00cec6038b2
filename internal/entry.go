// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tooknotes/internal/api"
	"github.com/starford/tooknotes/internal/mcpserver"
	"github.com/starford/tooknotes/internal/metrics"
	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/repository"
	"github.com/starford/tooknotes/internal/sse"
	"github.com/starford/tooknotes/internal/store"
	"github.com/starford/tooknotes/internal/usecase"
)

// stack is the wired notes core shared by the HTTP and MCP entry points.
type stack struct {
	logger   *slog.Logger
	store    *store.SQLite
	uc       usecase.NoteUseCases
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	ctrl     *notes.Controller
}

func (a *application) build(defaultLogOut io.Writer) (*stack, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOut
	if out == nil {
		out = defaultLogOut
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_order", cfg.Notes.DefaultOrder.String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite note store.
	st, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		st.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo := repository.New(st)
	uc := usecase.NewNoteUseCases(repo)
	ctrl := notes.New(uc, repo,
		notes.WithLogger(logger),
		notes.WithMetrics(m),
		notes.WithInitialOrder(cfg.Notes.DefaultOrder),
	)

	return &stack{
		logger:   logger,
		store:    st,
		uc:       uc,
		metrics:  m,
		registry: reg,
		ctrl:     ctrl,
	}, nil
}

// runCore starts the controller and, if configured, the store watcher.
func (s *stack) runCore(ctx context.Context, g *errgroup.Group, watch bool) {
	g.Go(func() error {
		return s.ctrl.Run(ctx)
	})
	if watch {
		g.Go(func() error {
			if err := s.store.Watch(ctx); err != nil {
				s.logger.Warn("store watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	s, err := app.build(os.Stdout)
	if err != nil {
		return err
	}
	defer s.store.Close()
	cfg := app.config
	logger := s.logger

	sseHandler := sse.NewHandler("notes.state", s.ctrl.Subscribe, cfg.Notes.SSEHeartbeat, s.metrics.StreamClients)
	apiRouter := api.NewRouter(s.ctrl, s.uc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := s.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	s.runCore(gCtx, g, cfg.Notes.WatchExternal)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the controller and the watcher.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}

	s, err := app.build(os.Stderr)
	if err != nil {
		return err
	}
	defer s.store.Close()

	srv := mcpserver.New(s.ctrl, s.uc, app.version)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	s.runCore(gCtx, g, app.config.Notes.WatchExternal)

	g.Go(func() error {
		defer cancel()
		s.logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
