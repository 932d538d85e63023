package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/navigation"
)

// AuthHandler exposes the session operations.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterRoutes registers the auth area and the session endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route(navigation.AuthPrefix, func(r chi.Router) {
		r.Get("/login", h.page("login"))
		r.Get("/register", h.page("register"))
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
	})
	r.Get("/api/session", h.Session)
}

func (h *AuthHandler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"page": name})
	}
}

// Login authenticates and answers with the landing area.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		WriteError(w, apperr.New(apperr.CodeValidation, "username and password are required", nil))
		return
	}

	landing, err := h.sess.Login(r.Context(), creds)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"redirect": landing,
		"profile":  h.sess.Snapshot().Profile,
	})
}

// Register creates an account; the caller logs in afterwards.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := decodeJSON(r, &reg); err != nil {
		WriteError(w, err)
		return
	}
	if reg.Role == "" {
		reg.Role = domain.RoleClient
	}
	if !reg.Role.Valid() {
		WriteError(w, apperr.New(apperr.CodeValidation, "unknown role "+string(reg.Role), nil))
		return
	}

	if err := h.sess.Register(r.Context(), reg); err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]string{"redirect": navigation.LoginPath})
}

// Logout drops the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Logout(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"redirect": navigation.LoginPath})
}

// Session reports the current session and location.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	snap := h.sess.Snapshot()
	JSON(w, http.StatusOK, map[string]interface{}{
		"state":         snap.State.String(),
		"loading":       snap.Loading,
		"authenticated": snap.IsAuthenticated(),
		"profile":       snap.Profile,
		"location":      h.nav.Location(),
	})
}
