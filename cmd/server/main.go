// Vocabook - vocabulary flashcard study server
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

	"github.com/ashureev/vocabook/internal/api"
	"github.com/ashureev/vocabook/internal/config"
	"github.com/ashureev/vocabook/internal/identity"
	"github.com/ashureev/vocabook/internal/live"
	"github.com/ashureev/vocabook/internal/middleware"
	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/source"
	"github.com/ashureev/vocabook/internal/store"
	"github.com/ashureev/vocabook/internal/study"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

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

	catalog, err := sheet.LoadCatalog(cfg.Sheets.CatalogPath)
	if err != nil {
		slog.Error("Failed to load sheet catalog", "error", err, "path", cfg.Sheets.CatalogPath)
		os.Exit(1)
	}
	slog.Info("Sheet catalog loaded", "sheets", len(catalog.IDs()))

	src, err := newSource(cfg, catalog, logger)
	if err != nil {
		slog.Error("Failed to initialize sheet source", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	sessions := study.NewManager(src, nil)
	sessions.SetHistory(repo)
	hub := live.NewHub()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions, catalog, src, cfg)
	healthHandler := api.NewHealthHandler(repo, sessions)
	sheetHandler := api.NewSheetHandler(baseHandler)
	sessionHandler := api.NewSessionHandler(baseHandler)
	wsHandler := live.NewWebSocketHandler(sessions, catalog, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	sheetHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/session", wsHandler.ServeHTTP)

	// Create server.
	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start session sweeper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := study.StartSweeper(ctx, sessions, cfg.Study.SessionTTL, cfg.Study.SweepInterval, repo, hub.CloseSession)

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
	<-sweeperDone

	slog.Info("Server stopped successfully")
}

// newSource picks the offline fixture when configured, otherwise the
// Google Sheets API.
func newSource(cfg *config.Config, catalog *sheet.Catalog, logger *slog.Logger) (source.Source, error) {
	if cfg.UsesFixture() {
		src, err := source.LoadFile(cfg.Sheets.FixturePath)
		if err != nil {
			return nil, err
		}
		slog.Info("Serving sheets from fixture", "path", cfg.Sheets.FixturePath, "sheets", len(src))
		return src, nil
	}

	slog.Info("Serving sheets from Google Sheets", "spreadsheet_id", cfg.Sheets.SpreadsheetID, "concurrency", cfg.Sheets.Concurrency)
	return source.NewGoogleSheets(source.GoogleSheetsConfig{
		BaseURL:       cfg.Sheets.BaseURL,
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		APIKey:        cfg.Sheets.APIKey,
		Timeout:       cfg.Sheets.FetchTimeout,
		Concurrency:   cfg.Sheets.Concurrency,
		Logger:        logger,
	}, catalog), nil
}
