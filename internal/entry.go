// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/graphflow/internal/api"
	"github.com/starford/graphflow/internal/backend"
	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/mcpserver"
	"github.com/starford/graphflow/internal/registry"
	"github.com/starford/graphflow/internal/sse"
	"github.com/starford/graphflow/internal/storage"
)

// Version is reported by the MCP server.
const Version = "1.0.0"

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newManager builds the editor session manager talking to the configured backend.
func newManager(cfg *Config, logger *slog.Logger, opts ...editor.Option) *editor.Manager {
	client := backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger))
	opts = append([]editor.Option{
		editor.WithFeatureLogicMode(cfg.Editor.FeatureLogicMode),
		editor.WithSerializer(cfg.Editor.Serializer()),
	}, opts...)
	return editor.NewManager(client, logger, opts...)
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend_url", cfg.Backend.URL),
		slog.String("sources_dir", cfg.Registry.SourcesDir),
		slog.String("sqlite_path", cfg.Registry.SQLitePath),
		slog.Bool("feature_logic_mode", cfg.Editor.FeatureLogicMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure sources directory exists.
	if err := os.MkdirAll(cfg.Registry.SourcesDir, 0o755); err != nil {
		return fmt.Errorf("create sources dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Registry.SourcesDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := registry.Open(cfg.Registry.SQLitePath)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := registry.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	reg := registry.NewService(db, store,
		registry.NewCatalog(cfg.Registry.Infras),
		registry.Labels{Vertices: cfg.Registry.VertexLabels, Edges: cfg.Registry.EdgeLabels},
		logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	mgr := newManager(cfg, logger,
		editor.WithEventHook(func(ev editor.Event) {
			broker.PublishEditorEvent(ev.Kind, ev.Session, ev.Node)
		}),
		editor.WithOnFinish(func(name string) {
			logger.Info("editor: workflow finished", slog.String("name", name))
		}))

	apiRouter := api.NewRouter(reg, mgr, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := reg.Graphs(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start sources watcher; changes reach SSE clients and open sessions.
	g.Go(func() error {
		err := registry.Watch(gCtx, db, store, store.Root(), logger, func(kind, path string) {
			broker.PublishSourceEvent(kind, path)
			mgr.TriggerRefresh(gCtx)
		})
		if err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the editor tools over stdio. Sessions talk to the configured
// backend; logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)
	logger.Info("MCP server starting", slog.String("backend_url", cfg.Backend.URL))

	srv := mcpserver.New(newManager(cfg, logger), Version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
