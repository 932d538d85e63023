// marketdesk - freelance marketplace dashboard
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

	"github.com/joho/godotenv"

	"github.com/ashureev/marketdesk/internal/api"
	"github.com/ashureev/marketdesk/internal/apiclient"
	"github.com/ashureev/marketdesk/internal/config"
	"github.com/ashureev/marketdesk/internal/navigation"
	"github.com/ashureev/marketdesk/internal/session"
	"github.com/ashureev/marketdesk/internal/store"
)

func main() {
	// .env may set LOG_LEVEL, so it is loaded before the logger exists.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Info("No .env file found, using environment variables")
	}

	slog.Info("Starting dashboard", "port", cfg.Port, "backend", cfg.BackendURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	creds, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := creds.Close(); closeErr != nil {
			slog.Error("Failed to close credential store", "error", closeErr)
		}
	}()

	if err := creds.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	nav := navigation.NewNavigator()

	// The adapter reads the credential from, and reports expiry to, the
	// session store created right after it.
	var sess *session.Store
	backend, err := apiclient.New(cfg.BackendURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.HTTP}),
		apiclient.WithTokenSource(apiclient.TokenSourceFunc(func() string { return sess.Token() })),
		apiclient.WithUnauthorizedHandler(func() { sess.HandleUnauthorized() }),
	)
	if err != nil {
		slog.Error("Failed to initialize backend client", "error", err)
		os.Exit(1)
	}
	sess = session.New(backend, creds, nav)
	unwatch := sess.Subscribe(func(snap session.Snapshot) {
		slog.Debug("Session changed",
			"state", snap.State.String(),
			"loading", snap.Loading,
			"user_id", snap.Profile.IdentityID(),
		)
	})
	defer unwatch()

	views := api.NewViewManager()
	unfollow := views.FollowNavigation(nav)
	defer unfollow()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve the stored session in the background; guarded pages wait for it.
	go func() {
		resolveCtx, cancel := context.WithTimeout(ctx, cfg.Timeout.Resolve)
		defer cancel()
		if err := sess.Resolve(resolveCtx); err != nil {
			slog.Warn("Session resolution failed", "error", err)
			return
		}
		slog.Info("Session ready", "state", sess.Snapshot().State.String())
	}()

	handler := api.NewRouter(api.NewHandler(sess, backend, nav, views, cfg), creds)

	// Conversation sockets are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

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
	views.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
