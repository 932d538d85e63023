package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/marketdesk/internal/apiclient"
	"github.com/ashureev/marketdesk/internal/config"
	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/navigation"
	"github.com/ashureev/marketdesk/internal/session"
	"github.com/ashureev/marketdesk/internal/store"
)

// fakeBackend mimics the marketplace REST API.
type fakeBackend struct {
	mu       sync.Mutex
	accounts map[string]domain.Profile // username -> profile
	tokens   map[string]string         // token -> username
	sent     []map[string]any
	fetches  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts: map[string]domain.Profile{
			"carol": {ID: 1, User: domain.User{ID: 7, Username: "carol"}, Role: domain.RoleClient, IsApproved: true},
			"dave":  {ID: 2, User: domain.User{ID: 8, Username: "dave"}, Role: domain.RoleDeveloper},
		},
		tokens: make(map[string]string),
	}
}

func (b *fakeBackend) issue(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := "jwt-" + username
	b.tokens[token] = username
	return token
}

func (b *fakeBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

func (b *fakeBackend) authorized(r *http.Request) (domain.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		return domain.Profile{}, false
	}
	return b.accounts[username], true
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	protected := func(fn func(w http.ResponseWriter, r *http.Request, p domain.Profile)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := b.authorized(r)
			if !ok {
				reply(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
				return
			}
			fn(w, r, p)
		}
	}

	mux.HandleFunc("POST /api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if _, ok := b.accounts[creds.Username]; !ok || creds.Password != "secret" {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]string{"access": b.issue(creds.Username), "refresh": "r"})
	})
	mux.HandleFunc("GET /api/user/me/", protected(func(w http.ResponseWriter, r *http.Request, p domain.Profile) {
		reply(w, http.StatusOK, p)
	}))
	mux.HandleFunc("GET /api/projects/", protected(func(w http.ResponseWriter, r *http.Request, p domain.Profile) {
		reply(w, http.StatusOK, []domain.Project{{ID: 1, Title: "Landing page", Client: p.User.ID, Status: domain.ProjectPending}})
	}))
	mux.HandleFunc("GET /api/messages/conversations/", protected(func(w http.ResponseWriter, r *http.Request, p domain.Profile) {
		reply(w, http.StatusOK, []domain.Conversation{{UserID: 42, Username: "bob", LastMessage: "hi"}})
	}))
	mux.HandleFunc("GET /api/messages/", protected(func(w http.ResponseWriter, r *http.Request, p domain.Profile) {
		partner := r.URL.Query().Get("user_id")
		b.mu.Lock()
		b.fetches = append(b.fetches, partner)
		b.mu.Unlock()
		id, _ := strconv.ParseInt(partner, 10, 64)
		reply(w, http.StatusOK, []domain.Message{{ID: 1, Sender: id, Receiver: p.User.ID, Content: "hi"}})
	}))
	mux.HandleFunc("POST /api/messages/", protected(func(w http.ResponseWriter, r *http.Request, p domain.Profile) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.sent = append(b.sent, body)
		b.mu.Unlock()
		reply(w, http.StatusCreated, domain.Message{ID: 2, Sender: p.User.ID, Content: body["content"].(string)})
	}))
	return mux
}

type dashboard struct {
	srv     *httptest.Server
	sess    *session.Store
	creds   *store.SQLiteStore
	nav     *navigation.Navigator
	views   *ViewManager
	backend *fakeBackend
	client  *http.Client
}

// newDashboard wires the dashboard the way main does. storedToken, when set,
// is persisted before the session is resolved.
func newDashboard(t *testing.T, storedToken string) *dashboard {
	t.Helper()
	fb := newFakeBackend()
	backendSrv := httptest.NewServer(fb.handler())
	t.Cleanup(backendSrv.Close)

	creds, err := store.NewSQLite(filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = creds.Close() })
	if storedToken != "" {
		require.NoError(t, creds.SaveCredential(context.Background(), storedToken))
	}

	nav := navigation.NewNavigator()
	var sess *session.Store
	backend, err := apiclient.New(backendSrv.URL+"/api",
		apiclient.WithTokenSource(apiclient.TokenSourceFunc(func() string { return sess.Token() })),
		apiclient.WithUnauthorizedHandler(func() { sess.HandleUnauthorized() }),
	)
	require.NoError(t, err)
	sess = session.New(backend, creds, nav)

	views := NewViewManager()
	t.Cleanup(views.FollowNavigation(nav))
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		Poll:           config.PollConfig{Interval: time.Hour},
		Timeout:        config.TimeoutConfig{HealthCheck: time.Second},
	}

	srv := httptest.NewServer(NewRouter(NewHandler(sess, backend, nav, views, cfg), creds))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { views.CloseAll("test done") })

	return &dashboard{
		srv:     srv,
		sess:    sess,
		creds:   creds,
		nav:     nav,
		views:   views,
		backend: fb,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (d *dashboard) resolve(t *testing.T) {
	t.Helper()
	require.NoError(t, d.sess.Resolve(context.Background()))
}

func (d *dashboard) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := d.client.Get(d.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (d *dashboard) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := d.client.Post(d.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (d *dashboard) storedToken(t *testing.T) string {
	t.Helper()
	token, err := d.creds.Credential(context.Background())
	require.NoError(t, err)
	return token
}

func TestDashboard_ClientLandsInClientArea(t *testing.T) {
	d := newDashboard(t, "")
	token := d.backend.issue("carol")
	require.NoError(t, d.creds.SaveCredential(context.Background(), token))
	d.resolve(t)

	resp := d.get(t, "/client")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["projects"], 1)

	resp = d.get(t, "/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, navigation.ClientPath, resp.Header.Get("Location"))

	resp = d.get(t, "/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, navigation.ClientPath, resp.Header.Get("Location"))
}

func TestDashboard_InvalidStoredCredential(t *testing.T) {
	d := newDashboard(t, "jwt-expired")
	d.resolve(t)

	snap := d.sess.Snapshot()
	require.False(t, snap.IsAuthenticated())
	require.Empty(t, snap.Credential)
	require.Empty(t, d.storedToken(t))

	resp := d.get(t, "/client")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, navigation.LoginPath, resp.Header.Get("Location"))
}

func TestDashboard_LoginAndLogout(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)

	resp := d.post(t, "/auth/login", domain.Credentials{Username: "carol", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "AUTHENTICATION_FAILED", decodeBody(t, resp)["code"])
	require.Equal(t, navigation.LoginPath, d.nav.Location())

	resp = d.post(t, "/auth/login", domain.Credentials{Username: "carol", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, navigation.ClientPath, decodeBody(t, resp)["redirect"])
	require.Equal(t, "jwt-carol", d.storedToken(t))

	resp = d.post(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, d.storedToken(t))

	for _, path := range []string{"/client", "/admin", "/developer", "/messages"} {
		resp = d.get(t, path)
		require.Equal(t, http.StatusFound, resp.StatusCode, path)
		require.Equal(t, navigation.LoginPath, resp.Header.Get("Location"), path)
	}
}

func TestDashboard_UnapprovedDeveloperIsPending(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)

	resp := d.post(t, "/auth/login", domain.Credentials{Username: "dave", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = d.get(t, "/developer")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, navigation.PendingApprovalPath, resp.Header.Get("Location"))

	resp = d.get(t, navigation.PendingApprovalPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDashboard_ExpiredCredentialLogsOut(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)
	resp := d.post(t, "/auth/login", domain.Credentials{Username: "carol", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	d.backend.revokeAll()
	resp = d.get(t, "/client")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.False(t, d.sess.IsAuthenticated())
	require.Empty(t, d.storedToken(t))
	require.Equal(t, navigation.LoginPath, d.nav.Location())
}

func TestDashboard_Health(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)

	resp := d.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	checks := body["checks"].(map[string]any)
	require.Equal(t, "ok", checks["database"])
	require.Equal(t, "anonymous", checks["session"])
	require.Equal(t, float64(0), body["views"])
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	for {
		frame := readFrame(t, ctx, conn)
		if match(frame) {
			return frame
		}
	}
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestDashboard_ConversationSocket(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)
	resp := d.post(t, "/auth/login", domain.Credentials{Username: "carol", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(d.srv.URL, "http") + "/messages/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	frame := readFrame(t, ctx, conn)
	require.Equal(t, frameState, frame["type"])
	require.Len(t, frame["conversations"], 1)

	writeFrame(t, ctx, conn, clientFrame{Type: frameSelect, PartnerID: 42, PartnerName: "bob"})
	frame = readUntil(t, ctx, conn, func(f map[string]any) bool {
		msgs, _ := f["messages"].([]any)
		return f["type"] == frameState && len(msgs) == 1
	})
	require.Equal(t, float64(42), frame["partner"].(map[string]any)["id"])

	writeFrame(t, ctx, conn, clientFrame{Type: frameSend, Content: "   "})
	frame = readUntil(t, ctx, conn, func(f map[string]any) bool { return f["type"] == frameNotice })
	require.Equal(t, "message is empty", frame["message"])

	writeFrame(t, ctx, conn, clientFrame{Type: frameSend, Content: "hello"})
	require.Eventually(t, func() bool {
		d.backend.mu.Lock()
		defer d.backend.mu.Unlock()
		return len(d.backend.sent) == 1
	}, 2*time.Second, 10*time.Millisecond)

	d.backend.mu.Lock()
	require.Equal(t, float64(42), d.backend.sent[0]["receiver"])
	require.Equal(t, "hello", d.backend.sent[0]["content"])
	d.backend.mu.Unlock()

	// Leaving the messages area unmounts the view.
	resp = d.post(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	frame = readUntil(t, ctx, conn, func(f map[string]any) bool { return f["type"] == frameNavigate })
	require.Equal(t, navigation.LoginPath, frame["path"])
	_, _, err = conn.Read(ctx)
	require.Error(t, err)
}

func TestDashboard_LogoutWithIdleViews(t *testing.T) {
	d := newDashboard(t, "")
	d.resolve(t)
	resp := d.post(t, "/auth/login", domain.Credentials{Username: "carol", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(d.srv.URL, "http") + "/messages/ws"
	// Neither socket is ever read, so no close handshake can complete.
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.CloseNow() })
	}
	require.Eventually(t, func() bool { return d.views.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	start := time.Now()
	resp = d.post(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Zero(t, d.views.Count())
	require.False(t, d.sess.IsAuthenticated())
}
