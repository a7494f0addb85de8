package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentora/chatd/internal/api"
	"github.com/rentora/chatd/internal/auth"
	"github.com/rentora/chatd/internal/chat"
	"github.com/rentora/chatd/internal/config"
	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/handlers"
	"github.com/rentora/chatd/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the durable store: PostgreSQL when configured, SQLite
	// fallback for development
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		dataStore = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}

	// Optional Redis-backed publish rate limiting
	var limiter *store.RateLimiter
	if cfg.RedisURL != "" {
		var err error
		limiter, err = store.NewRateLimiter(ctx, cfg.RedisURL, cfg.PublishLimit, cfg.PublishWindow)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer limiter.Close()
		logger.Info().Msg("connected to Redis")
	}

	dir := directory.New(dataStore)
	hub := chat.NewHub(logger, dataStore, dir, dir, limiter, chat.Options{
		MaxMessageBytes: cfg.MaxMessageBytes,
		HistoryLimit:    cfg.HistoryLimit,
		StoreTimeout:    cfg.StoreTimeout,
		SendBuffer:      cfg.SendBuffer,
	})

	handler := handlers.NewHandler(
		logger,
		dataStore,
		limiter,
		hub,
		auth.NewVerifier(cfg.JWTSecret),
		dir,
		handlers.Config{
			DevMode:      cfg.IsDevelopment(),
			JWTSecret:    cfg.JWTSecret,
			PongTimeout:  cfg.PongTimeout,
			PingInterval: cfg.PingInterval,
		},
	)

	router := api.NewRouter(logger, handler, cfg.IsDevelopment())

	// Create server. No WriteTimeout: websocket connections are
	// long-lived and manage their own deadlines.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 0,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting chat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	hub.Shutdown()

	logger.Info().Msg("server stopped")
}
