// Package navigation tracks the dashboard's current location and owns the
// well-known entry points of each area.
package navigation

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/marketdesk/internal/domain"
)

const (
	HomePath            = "/"
	AuthPrefix          = "/auth"
	LoginPath           = "/auth/login"
	RegisterPath        = "/auth/register"
	ClientPath          = "/client"
	DeveloperPath       = "/developer"
	AdminPath           = "/admin"
	MessagesPath        = "/messages"
	PendingApprovalPath = "/developer/pending"
)

// LandingPath returns the landing area for role. ok is false for roles the
// dashboard does not know, leaving the fallback to the caller.
func LandingPath(role domain.Role) (path string, ok bool) {
	switch role {
	case domain.RoleAdmin:
		return AdminPath, true
	case domain.RoleClient:
		return ClientPath, true
	case domain.RoleDeveloper:
		return DeveloperPath, true
	}
	return "", false
}

// InAuthArea reports whether path is within the authentication area.
func InAuthArea(path string) bool {
	return path == AuthPrefix || strings.HasPrefix(path, AuthPrefix+"/")
}

// Listener is notified with the new location after every Navigate.
type Listener func(path string)

// Navigator holds the current location of the process-wide dashboard.
type Navigator struct {
	mu        sync.RWMutex
	location  string
	nextID    int
	listeners map[int]Listener
}

// NewNavigator creates a navigator positioned at the home page.
func NewNavigator() *Navigator {
	return &Navigator{
		location:  HomePath,
		listeners: make(map[int]Listener),
	}
}

// Location returns the current location.
func (n *Navigator) Location() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.location
}

// Visit records a location the user reached on their own, without notifying
// listeners.
func (n *Navigator) Visit(path string) {
	n.mu.Lock()
	n.location = path
	n.mu.Unlock()
}

// Navigate moves the dashboard to path and tells every listener about it.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.location = path
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.Unlock()

	slog.Debug("Navigating", "path", path)
	for _, l := range listeners {
		l(path)
	}
}

// Subscribe registers l and returns a function that removes it.
func (n *Navigator) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}
