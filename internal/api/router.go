package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/marketdesk/internal/middleware"
	"github.com/ashureev/marketdesk/internal/store"
)

// NewRouter wires every dashboard route behind the global middleware.
func NewRouter(base *Handler, creds store.CredentialStore) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	origins := []string{"*"}
	if base.cfg != nil {
		origins = base.cfg.AllowedOrigins
	}
	r.Use(middleware.CORS(origins))
	r.Use(middleware.TrackLocation(base.nav))

	NewHealthHandler(creds, base.sess, base.views, base.cfg).RegisterHealth(r)
	NewAuthHandler(base).RegisterRoutes(r)
	NewAreaHandler(base).RegisterRoutes(r)
	NewConversationHandler(base).RegisterRoutes(r)

	return r
}
