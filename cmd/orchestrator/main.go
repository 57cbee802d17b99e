// CourseForge - Course Pipeline Streaming Server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/mkraev/courseforge/internal/chat"
	"github.com/mkraev/courseforge/internal/chatlog"
	"github.com/mkraev/courseforge/internal/config"
	"github.com/mkraev/courseforge/internal/middleware"
	"github.com/mkraev/courseforge/internal/pipeline"
	"github.com/mkraev/courseforge/internal/retention"
	"github.com/mkraev/courseforge/internal/store"
	"github.com/mkraev/courseforge/internal/telemetry"
	"github.com/mkraev/courseforge/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(config.Defaults{Port: "8000"})
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting orchestrator server", "port", cfg.Port, "model", cfg.ModelName, "dev", cfg.IsDevelopment())

	shutdownTracing, err := telemetry.Setup(cfg.TraceConsole)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("Failed to flush tracer provider", "error", err)
		}
	}()

	// Initialize dependencies.
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

	transcripts, err := chatlog.New(chatlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation transcripts", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close conversation transcripts", "error", closeErr)
		}
	}()

	// Initialize the agent pipeline and services.
	rt := pipeline.NewCourseBuilderRuntime(cfg.ModelName)
	chatService := chat.NewService(rt.AppName, rt.Runner, rt.Sessions, repo)
	chatHandler := chat.NewHandler(chatService, transcripts)

	pruner := retention.New(cfg.Retention, repo)
	if err := pruner.Start(); err != nil {
		slog.Error("Failed to start retention pruner", "error", err)
		os.Exit(1)
	}
	defer pruner.Stop()

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Chat routes.
	r.Post("/api/chat_stream", chatHandler.HandleChatStream)
	r.Get("/api/history", chatHandler.HandleHistory)
	r.Post("/feedback", chatHandler.HandleFeedback)

	// Serve the built frontend when it is present (SPA catch-all).
	if spa, ok := web.Mount(cfg.FrontendDir); ok {
		r.Handle("/*", spa)
		slog.Info("Frontend mounted", "dir", cfg.FrontendDir)
	} else {
		slog.Info("Frontend directory not found, static serving disabled", "dir", cfg.FrontendDir)
	}

	// Create server.
	// Note: NDJSON streaming requires long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
