// Mockdy - AI mock interview server
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

	"github.com/ashureev/mockdy/internal/api"
	"github.com/ashureev/mockdy/internal/config"
	"github.com/ashureev/mockdy/internal/identity"
	"github.com/ashureev/mockdy/internal/interview"
	"github.com/ashureev/mockdy/internal/live"
	"github.com/ashureev/mockdy/internal/middleware"
	"github.com/ashureev/mockdy/internal/notion"
	"github.com/ashureev/mockdy/internal/store"
	"github.com/ashureev/mockdy/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

const interviewSweepInterval = 5 * time.Minute

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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := openRepository(cfg.DBPath)
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
	slog.Info("Database connected", "path", cfg.DBPath)

	sessions := store.NewSessionStore(repo)
	conns := store.NewConnectionStore(repo)

	// Notion integration. Missing credentials are reported per request.
	oauthClient := notion.NewOAuthClient(cfg.Notion, nil)
	pagesClient := notion.NewPagesClient(cfg.Notion, nil)
	reports := notion.NewReportWriter(pagesClient, oauthClient, conns)
	if !cfg.NotionEnabled() {
		slog.Info("Notion OAuth credentials not set; reporting endpoints will return configuration errors")
	}

	// Hosted model (optional).
	var model interview.Model
	if cfg.AIEnabled() {
		gm, err := interview.NewGeminiModel(context.Background(), cfg.Gemini)
		if err != nil {
			slog.Warn("Failed to initialize Gemini, AI features will be disabled", "error", err)
		} else {
			model = gm
		}
	}
	if model == nil {
		slog.Info("AI features disabled (GEMINI_API_KEY not set or client failed)")
	}

	svc := interview.NewService(model, sessions, conns, reports)
	sm := live.NewSessionManager()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions, conns, cfg.FrontendURL)
	healthHandler := api.NewHealthHandler(baseHandler)
	profileHandler := api.NewProfileHandler(baseHandler, model != nil, cfg.NotionEnabled())
	notionHandler := api.NewNotionHandler(baseHandler, oauthClient, pagesClient)
	sessionHandler := api.NewSessionHandler(baseHandler, reports)
	interviewHandler := api.NewInterviewHandler(baseHandler, svc)

	// One limiter meters model calls from both the HTTP routes and the socket.
	limiter := middleware.NewLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})
	wsHandler := live.NewHandler(repo, svc, sm, limiter, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
	r.MethodNotAllowed(api.MethodNotAllowed)

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	profileHandler.RegisterRoutes(r)
	notionHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	interviewHandler.RegisterRoutes(r, limiter.Middleware)

	// WebSocket endpoint. Model-backed frames are metered inside the handler.
	r.Get("/ws/interview", wsHandler.ServeHTTP)

	// Unknown API paths get JSON, everything else the SPA.
	r.Handle("/api/*", http.HandlerFunc(api.NotFound))
	r.Handle("/*", web.SPAHandler())

	// Note: SSE streams require long timeouts (no WriteTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout for SSE support
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	// Start cleanup worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartCleanupWorker(ctx, repo, cfg.ProfileTTL, func(profilesDeleted int64) {
		slog.Info("Stale profiles removed", "count", profilesDeleted)
	})
	svc.StartSweeper(ctx, interviewSweepInterval, cfg.InterviewIdleTimeout)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sm.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// openRepository returns an in-memory repository for ":memory:" and SQLite otherwise.
func openRepository(dbPath string) (store.Repository, error) {
	if dbPath == ":memory:" {
		slog.Warn("Using in-memory store; data will not survive a restart")
		return store.NewMemory(), nil
	}
	return store.NewSQLite(dbPath)
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" || cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
