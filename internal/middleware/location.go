package middleware

import (
	"net/http"
	"strings"
)

// Visitor records where the user is.
type Visitor interface {
	Visit(path string)
}

// TrackLocation records every dashboard page the user reaches. Machine
// endpoints (/api, /health) do not move the location.
func TrackLocation(v Visitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions && isPage(r.URL.Path) {
				v.Visit(normalize(r.URL.Path))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPage(path string) bool {
	switch {
	case path == "/health", path == "/api", strings.HasPrefix(path, "/api/"):
		return false
	}
	return true
}

func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
