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
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linkdex/internal/api"
	"github.com/starford/linkdex/internal/mcpserver"
	"github.com/starford/linkdex/internal/metacache"
	"github.com/starford/linkdex/internal/noteservice"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/sse"
	"github.com/starford/linkdex/internal/storage"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/vault"
	pkgconfig "github.com/starford/linkdex/pkg/config"
)

// core is the vault, index and service stack shared by the HTTP and MCP
// front ends.
type core struct {
	vault    *vault.Store
	index    *urlindex.Index
	settings *settings.Holder
	svc      *noteservice.Service
	close    func()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	// SSE broker: index.updated from the index, note.* from the vault.
	broker := sse.NewBroker(cfg.Events.IndexThrottle)
	defer broker.Close()
	disposeIndex := c.index.Subscribe(broker.IndexUpdated)
	defer disposeIndex()
	disposeVault := c.vault.Subscribe(broker)
	defer disposeVault()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	startBackground(gCtx, g, app, c, logger)

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

		// Release SSE clients first; Shutdown waits for open streams.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until stdin closes. Logs go
// to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	c, err := buildCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	startBackground(gCtx, g, app, c, logger)

	g.Go(func() error {
		defer cancel()
		logger.Info("mcp: serving on stdio")
		if err := mcpserver.New(c.svc, app.version).ServeStdio(); err != nil {
			return fmt.Errorf("mcp: serve: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// errShutdown ends the errgroup once a shutdown completed.
var errShutdown = errors.New("shutdown")

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// buildCore opens the vault, loads it and builds the URL index.
func buildCore(cfg *Config, logger *slog.Logger) (*core, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	fs, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Ignore...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// The cache stays a nil interface when disabled.
	var cache metacache.Cache
	if cfg.Cache.Enabled() {
		db, err := metacache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("init metadata cache: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		cache = db
	}

	store := vault.New(fs, cache, logger)
	if err := store.Load(); err != nil {
		closeAll()
		return nil, fmt.Errorf("load vault: %w", err)
	}

	holder := settings.NewHolder(cfg.Links)
	ix := urlindex.New(store, holder, logger)
	ix.Initialize()
	closers = append(closers, ix.Close)

	return &core{
		vault:    store,
		index:    ix,
		settings: holder,
		svc:      noteservice.NewService(store, ix, holder, logger),
		close:    closeAll,
	}, nil
}

// startBackground runs the vault watcher and, when a config file is known,
// the config watcher that hot-swaps the links settings.
func startBackground(ctx context.Context, g *errgroup.Group, app *application, c *core, logger *slog.Logger) {
	g.Go(func() error {
		if err := vault.Watch(ctx, c.vault, app.config.Vault.Path, logger); err != nil {
			logger.Error("watcher: stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if app.configPath == "" {
		return
	}
	g.Go(func() error {
		err := pkgconfig.Watch(ctx, app.configPath, NewDefaultConfig, func(next *Config) {
			applyLinks(c, next.Links, logger)
		})
		if err != nil {
			logger.Warn("config: watch disabled", slog.String("error", err.Error()))
		}
		return nil
	})
}

// applyLinks swaps in new links settings. Settings that shape the index
// contents trigger a rebuild; the rest are read at query time.
func applyLinks(c *core, next settings.Settings, logger *slog.Logger) {
	prev := c.settings.Current()
	c.settings.Set(next)
	if !slices.Equal(prev.URLFields, next.URLFields) || prev.RecentCap != next.RecentCap {
		c.index.RebuildIndex()
	}
	logger.Info("config: links settings applied",
		slog.Int("url_fields", len(next.URLFields)),
		slog.Int("recent_cap", next.RecentCap))
}
