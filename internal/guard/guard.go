// Package guard decides whether a dashboard area may render for the current
// session and enforces that decision as chi middleware.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/navigation"
	"github.com/ashureev/marketdesk/internal/session"
)

// Area describes who may see a part of the dashboard.
type Area struct {
	Name   string
	Public bool
	// Roles lists the permitted roles; empty means any authenticated role.
	Roles []domain.Role
	// RequireApproved additionally demands an approved profile.
	RequireApproved bool
}

// Outcome is the kind of Decision.
type Outcome int

const (
	Render Outcome = iota
	Wait
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of evaluating an Area against a session.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Decide evaluates area against snap. The first matching rule wins.
func Decide(snap session.Snapshot, area Area) Decision {
	if area.Public {
		return Decision{Outcome: Render}
	}
	if snap.Loading {
		return Decision{Outcome: Wait}
	}
	if !snap.IsAuthenticated() {
		return Decision{Outcome: Redirect, Target: navigation.LoginPath}
	}

	role := snap.Profile.Role
	if len(area.Roles) > 0 && !slices.Contains(area.Roles, role) {
		landing, ok := navigation.LandingPath(role)
		if !ok {
			landing = navigation.LoginPath
		}
		return Decision{Outcome: Redirect, Target: landing}
	}
	if area.RequireApproved && !snap.Profile.IsApproved {
		return Decision{Outcome: Redirect, Target: navigation.PendingApprovalPath}
	}
	return Decision{Outcome: Render}
}

// Session is the slice of session.Store the middleware needs.
type Session interface {
	Snapshot() session.Snapshot
	WaitResolved(ctx context.Context) error
}

type contextKey struct{}

// ProfileFromContext returns the profile placed by Middleware, or nil.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(contextKey{}).(*domain.Profile)
	return p
}

// WithProfile returns a copy of ctx carrying p.
func WithProfile(ctx context.Context, p *domain.Profile) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// Middleware gates next behind area. While the session is still loading the
// request is held until resolution completes.
func Middleware(sess Session, area Area) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := sess.Snapshot()
			decision := Decide(snap, area)

			if decision.Outcome == Wait {
				if err := sess.WaitResolved(r.Context()); err != nil {
					slog.Debug("Request abandoned while session loading", "area", area.Name, "error", err)
					http.Error(w, "session is loading", http.StatusServiceUnavailable)
					return
				}
				snap = sess.Snapshot()
				decision = Decide(snap, area)
			}

			switch decision.Outcome {
			case Redirect:
				slog.Debug("Guard redirect", "area", area.Name, "path", r.URL.Path, "target", decision.Target)
				http.Redirect(w, r, decision.Target, http.StatusFound)
			case Render:
				ctx := r.Context()
				if snap.Profile != nil {
					ctx = WithProfile(ctx, snap.Profile)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			default:
				http.Error(w, "session is loading", http.StatusServiceUnavailable)
			}
		})
	}
}
