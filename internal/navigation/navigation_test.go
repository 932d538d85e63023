package navigation

import (
	"testing"

	"github.com/ashureev/marketdesk/internal/domain"
)

func TestLandingPath(t *testing.T) {
	tests := []struct {
		role   domain.Role
		want   string
		wantOK bool
	}{
		{domain.RoleAdmin, AdminPath, true},
		{domain.RoleClient, ClientPath, true},
		{domain.RoleDeveloper, DeveloperPath, true},
		{domain.Role("Moderator"), "", false},
	}
	for _, tt := range tests {
		got, ok := LandingPath(tt.role)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LandingPath(%q) = (%q, %v), want (%q, %v)", tt.role, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInAuthArea(t *testing.T) {
	tests := map[string]bool{
		"/auth":          true,
		"/auth/login":    true,
		"/auth/register": true,
		"/authors":       false,
		"/client":        false,
		"/":              false,
	}
	for path, want := range tests {
		if got := InAuthArea(path); got != want {
			t.Errorf("InAuthArea(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNavigateNotifiesSubscribers(t *testing.T) {
	nav := NewNavigator()
	if nav.Location() != HomePath {
		t.Fatalf("expected home location, got %q", nav.Location())
	}

	var seen []string
	unsubscribe := nav.Subscribe(func(path string) { seen = append(seen, path) })

	nav.Visit(ClientPath)
	nav.Navigate(LoginPath)
	unsubscribe()
	nav.Navigate(HomePath)

	if len(seen) != 1 || seen[0] != LoginPath {
		t.Fatalf("expected a single login notification, got %v", seen)
	}
	if nav.Location() != HomePath {
		t.Fatalf("expected location to follow Navigate, got %q", nav.Location())
	}
}
