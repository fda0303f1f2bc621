// Package main is the entry point for the clomery API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
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

	"clomery/internal/account"
	"clomery/internal/cache"
	"clomery/internal/config"
	"clomery/internal/database"
	"clomery/internal/handlers"
	"clomery/internal/metrics"
	"clomery/internal/middleware"
	"clomery/internal/query"
	"clomery/internal/router"
	"clomery/internal/session"
	"clomery/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"db_driver", cfg.DBDriver,
	)

	dialect, err := query.ForDriver(cfg.SQLDriver())
	if err != nil {
		slog.Error("unsupported database driver", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.SQLDriver(), cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db, dialect); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(context.Background(), db, dialect); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (session token store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	tokens := session.NewStore(valkeyClient, cfg.SessionTTL)

	// Initialize data stores.
	categoryStore := store.NewCategoryStore(db, dialect)
	tagStore := store.NewTagStore(db, dialect)
	contentStore := store.NewContentStore(db, dialect, categoryStore, tagStore)
	userStore := store.NewUserStore(db, dialect)

	accounts := account.NewService(db, userStore, tokens)
	m := metrics.New()

	signInLimiter := middleware.NewRateLimiter(cfg.SignInRate, time.Minute)
	defer signInLimiter.Stop()
	viewLimiter := middleware.NewRateLimiter(cfg.ViewRate, time.Minute)
	defer viewLimiter.Stop()

	r := router.New(router.Deps{
		Tokens:   accounts,
		Metrics:  m,
		SignIn:   signInLimiter,
		Views:    viewLimiter,
		Content:  handlers.NewContent(contentStore, tagStore, m, cfg.PageSize),
		Category: handlers.NewCategory(categoryStore, tagStore, contentStore, cfg.PageSize),
		Account:  handlers.NewAccount(accounts, m),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// newLogger builds the process logger: text output in development, JSON
// otherwise, unless LOG_FORMAT says differently.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
