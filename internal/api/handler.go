// Package api provides the HTTP surface of the dashboard.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/marketdesk/internal/apiclient"
	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/config"
	"github.com/ashureev/marketdesk/internal/navigation"
	"github.com/ashureev/marketdesk/internal/session"
)

// Handler provides common handler utilities.
type Handler struct {
	sess    *session.Store
	backend *apiclient.Client
	nav     *navigation.Navigator
	views   *ViewManager
	cfg     *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sess *session.Store, backend *apiclient.Client, nav *navigation.Navigator, views *ViewManager, cfg *config.Config) *Handler {
	return &Handler{
		sess:    sess,
		backend: backend,
		nav:     nav,
		views:   views,
		cfg:     cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// WriteError maps err onto an HTTP status and writes it.
func WriteError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	JSON(w, status, body)
}

func errorResponse(err error) (int, map[string]string) {
	code := apperr.CodeOf(err)
	body := map[string]string{"error": apperr.ReasonOf(err)}
	if code != "" {
		body["code"] = string(code)
	}

	switch code {
	case apperr.CodeAuthentication, apperr.CodeSessionExpired:
		return http.StatusUnauthorized, body
	case apperr.CodeRegistration:
		return http.StatusBadRequest, body
	case apperr.CodeValidation:
		return http.StatusUnprocessableEntity, body
	case apperr.CodeNetwork, apperr.CodeUpstream:
		return http.StatusBadGateway, body
	}

	var se *apiclient.StatusError
	if errors.As(err, &se) {
		body["error"] = se.Detail()
		if se.StatusCode >= 400 && se.StatusCode < 500 {
			return se.StatusCode, body
		}
		return http.StatusBadGateway, body
	}
	return http.StatusInternalServerError, map[string]string{"error": "internal error"}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.CodeValidation, "invalid request body", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeValidation, "invalid "+name, err)
	}
	return id, nil
}
