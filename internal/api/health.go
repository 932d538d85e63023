package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/marketdesk/internal/config"
	"github.com/ashureev/marketdesk/internal/session"
	"github.com/ashureev/marketdesk/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	creds store.CredentialStore
	sess  *session.Store
	views *ViewManager
	cfg   *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(creds store.CredentialStore, sess *session.Store, views *ViewManager, cfg *config.Config) *HealthHandler {
	return &HealthHandler{creds: creds, sess: sess, views: views, cfg: cfg}
}

// Health reports the credential database, the session lifecycle and the
// number of mounted conversation views.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	healthCheckTimeout := 5 * time.Second
	if h.cfg != nil {
		healthCheckTimeout = h.cfg.Timeout.HealthCheck
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.creds.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}
	checks["session"] = h.sess.Snapshot().State.String()
	if h.views != nil {
		status["views"] = h.views.Count()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
