// Scripture Chat - embeddable chat widget server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/api"
	"github.com/ashureev/scripture-chat/internal/config"
	"github.com/ashureev/scripture-chat/internal/identity"
	"github.com/ashureev/scripture-chat/internal/middleware"
	"github.com/ashureev/scripture-chat/internal/pages"
	"github.com/ashureev/scripture-chat/internal/secrets"
	"github.com/ashureev/scripture-chat/internal/store"
	"github.com/ashureev/scripture-chat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	persona, err := config.LoadPersona(cfg.PersonaPath)
	if err != nil {
		slog.Error("Failed to load persona", "error", err, "path", cfg.PersonaPath)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "persona", persona.Name)

	// Resolve agent service credentials: environment first, then secret files.
	creds, err := secrets.LoadAgentCredentials(context.Background(), secrets.Chain{
		secrets.NewEnvStore(),
		secrets.NewFileStore(cfg.SecretsDir),
	})
	if err != nil {
		slog.Error("Failed to load agent credentials", "error", err)
		os.Exit(1)
	}

	client, err := agent.NewHTTPClient(agent.Config{
		BaseURL:  cfg.Agent.BaseURL,
		APIToken: creds.APIToken,
		UsageKey: creds.UsageKey,
		AppID:    cfg.Agent.AppID,
		Timeout:  cfg.Agent.Timeout,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize agent client", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent client initialized", "base_url", cfg.Agent.BaseURL, "timeout", cfg.Agent.Timeout)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Agents journaled by a previous run can no longer be reached from any page.
	if _, err := pages.SweepOrphans(context.Background(), client, repo, logger); err != nil {
		slog.Warn("Orphan sweep failed", "error", err)
	}

	registry := pages.NewRegistry(pages.Options{
		Client:         client,
		Persona:        *persona,
		Journal:        repo,
		MaxDiagnostics: cfg.Pages.DiagnosticsMax,
		Logger:         logger,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(registry, *persona)
	widgetHandler := api.NewWidgetHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo, registry.Len)
	wsHandler := api.NewWebSocketHandler(baseHandler, cfg.AllowedOrigins, cfg.IsDevelopment(), cfg.Pages.EventBuffer)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins, identity.PageHeaderName))
	r.Use(identity.Middleware)

	healthHandler.RegisterHealth(r)
	widgetHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/widget", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Chat requests hold the connection until the agent answers, which has
	// no upper bound, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pages.RunTTLWorker(gctx, registry, cfg.Pages.TTL, cfg.Pages.SweepInterval)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		return shutdown(srv, registry, 10*time.Second)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// shutdown stops the HTTP server and then tears down every open page. Pages
// are torn down even when in-flight requests outlive the grace period, so
// their agents are not left for the next start's orphan sweep.
func shutdown(srv *http.Server, registry *pages.Registry, grace time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	n := registry.CloseAll(context.Background())
	slog.Info("Open pages torn down", "pages", n)
	return err
}
