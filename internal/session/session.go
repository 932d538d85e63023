// Package session owns the process-wide user session: the bearer credential,
// the resolved profile, and the loading flag that gates the first render.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/marketdesk/internal/apiclient"
	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/navigation"
	"github.com/ashureev/marketdesk/internal/store"
)

var (
	// ErrAlreadyResolved is returned by a second call to Resolve.
	ErrAlreadyResolved = errors.New("session: already resolved")
	// ErrSuperseded is returned when a logout or expiry raced an in-flight login.
	ErrSuperseded = errors.New("session: superseded by logout")
)

const clearTimeout = 5 * time.Second

// State is the lifecycle stage of the session.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateResolved
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateAnonymous:
		return "anonymous"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot is a consistent, immutable view of the session.
type Snapshot struct {
	State      State
	Credential string
	Profile    *domain.Profile
	Loading    bool
}

// IsAuthenticated reports whether a profile is present.
func (s Snapshot) IsAuthenticated() bool {
	return s.Profile != nil
}

// AuthAPI is the slice of the backend the session needs.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (string, error)
	Register(ctx context.Context, reg domain.Registration) error
	Me(ctx context.Context) (*domain.Profile, error)
}

// Navigator moves the dashboard between areas.
type Navigator interface {
	Navigate(path string)
	Location() string
}

// Store is the single authority over the session.
type Store struct {
	api   AuthAPI
	creds store.CredentialStore
	nav   Navigator

	mu         sync.RWMutex
	state      State
	credential string
	profile    *domain.Profile
	loading    bool
	started    bool
	// epoch is bumped on every logout so stale completions can be dropped.
	epoch     uint64
	resolved  chan struct{}
	nextID    int
	listeners map[int]func(Snapshot)
}

// New creates a Store in the Uninitialized state. Resolve must be called
// once before Login can complete.
func New(api AuthAPI, creds store.CredentialStore, nav Navigator) *Store {
	return &Store{
		api:       api,
		creds:     creds,
		nav:       nav,
		state:     StateUninitialized,
		loading:   true,
		resolved:  make(chan struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:      s.state,
		Credential: s.credential,
		Profile:    s.profile,
		Loading:    s.loading,
	}
}

// IsAuthenticated reports whether a profile has been resolved.
func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// Token returns the current bearer credential, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// WaitResolved blocks until the initial resolution has completed.
func (s *Store) WaitResolved(ctx context.Context) error {
	select {
	case <-s.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive every committed snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update applies fn under the lock when epoch is still current and notifies
// listeners. It reports whether fn was applied.
func (s *Store) update(epoch uint64, fn func()) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	fn()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

func (s *Store) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Resolve restores the session from durable storage. It runs once per
// process; loading is cleared when it returns, whatever the outcome.
func (s *Store) Resolve(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}
	s.started = true
	s.state = StateResolving
	epoch := s.epoch
	s.mu.Unlock()

	defer s.finishResolution()

	token, err := s.creds.Credential(ctx)
	if err != nil {
		slog.Warn("Failed to read stored credential", "error", err)
		s.update(epoch, s.setAnonymousLocked)
		return fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		s.update(epoch, s.setAnonymousLocked)
		return nil
	}

	profile, err := s.api.Me(apiclient.WithBearer(ctx, token))
	if err != nil {
		slog.Warn("Stored credential could not be resolved", "error", err)
		s.update(epoch, s.setAnonymousLocked)
		s.clearDurable()
		return nil
	}

	if s.update(epoch, func() { s.commitLocked(token, profile) }) {
		slog.Info("Session resolved", "user_id", profile.IdentityID(), "role", profile.Role)
	}
	return nil
}

func (s *Store) finishResolution() {
	s.mu.Lock()
	if s.state == StateResolving {
		s.setAnonymousLocked()
	}
	s.loading = false
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	close(s.resolved)
	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) commitLocked(token string, profile *domain.Profile) {
	s.credential = token
	s.profile = profile
	s.state = StateResolved
}

func (s *Store) setAnonymousLocked() {
	s.credential = ""
	s.profile = nil
	s.state = StateAnonymous
}

// Login authenticates, persists the credential, resolves the profile and
// navigates to the role's landing area, which it returns.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	if err := s.WaitResolved(ctx); err != nil {
		return "", err
	}
	epoch := s.currentEpoch()

	token, err := s.api.Login(ctx, creds)
	if err != nil {
		switch apiclient.StatusCodeOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return "", apperr.New(apperr.CodeAuthentication, "invalid username or password", err)
		}
		return "", fmt.Errorf("login: %w", err)
	}

	// The current session stays untouched until the new one is complete.
	profile, err := s.api.Me(apiclient.WithBearer(ctx, token))
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}

	if err := s.creds.SaveCredential(ctx, token); err != nil {
		return "", fmt.Errorf("persist credential: %w", err)
	}
	if !s.update(epoch, func() { s.commitLocked(token, profile) }) {
		s.clearDurable()
		return "", ErrSuperseded
	}

	landing, ok := navigation.LandingPath(profile.Role)
	if !ok {
		landing = navigation.HomePath
	}
	slog.Info("User logged in", "user_id", profile.IdentityID(), "role", profile.Role)
	s.nav.Navigate(landing)
	return landing, nil
}

// Register creates an account and sends the user to the login page. It
// never authenticates.
func (s *Store) Register(ctx context.Context, reg domain.Registration) error {
	if err := s.api.Register(ctx, reg); err != nil {
		var se *apiclient.StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
			return apperr.New(apperr.CodeRegistration, se.Detail(), err)
		}
		return fmt.Errorf("register: %w", err)
	}
	slog.Info("Account registered", "username", reg.Username, "role", reg.Role)
	s.nav.Navigate(navigation.LoginPath)
	return nil
}

// Logout drops the session and navigates to the login page. Calling it
// again is harmless.
func (s *Store) Logout(ctx context.Context) error {
	s.reset()
	err := s.creds.ClearCredential(ctx)
	if err != nil {
		slog.Error("Failed to clear stored credential", "error", err)
		err = fmt.Errorf("clear credential: %w", err)
	}
	s.nav.Navigate(navigation.LoginPath)
	return err
}

// HandleUnauthorized reacts to a 401 from the backend. Inside the auth area
// the rejection belongs to the form on screen and is left alone.
func (s *Store) HandleUnauthorized() {
	if navigation.InAuthArea(s.nav.Location()) {
		return
	}
	slog.Info("Session expired, logging out")
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	_ = s.Logout(ctx)
}

// reset clears credential and profile in one write and invalidates every
// in-flight completion.
func (s *Store) reset() {
	s.mu.Lock()
	s.epoch++
	s.credential = ""
	s.profile = nil
	if s.state != StateResolving {
		s.state = StateAnonymous
	}
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) clearDurable() {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	if err := s.creds.ClearCredential(ctx); err != nil {
		slog.Warn("Failed to clear stored credential", "error", err)
	}
}
