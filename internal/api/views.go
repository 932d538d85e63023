package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/marketdesk/internal/messaging"
	"github.com/ashureev/marketdesk/internal/navigation"
)

const writeTimeout = 5 * time.Second

// mountedView is one open conversation view and the socket that renders it.
type mountedView struct {
	conn *websocket.Conn
	view *messaging.View
}

// ViewManager tracks mounted conversation views.
type ViewManager struct {
	mu     sync.RWMutex
	active map[string]mountedView
}

// NewViewManager creates a new view manager.
func NewViewManager() *ViewManager {
	return &ViewManager{
		active: make(map[string]mountedView),
	}
}

// Count returns the number of mounted views.
func (m *ViewManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register mounts a view.
func (m *ViewManager) Register(viewID string, conn *websocket.Conn, view *messaging.View) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[viewID] = mountedView{conn: conn, view: view}
	slog.Info("Conversation view mounted", "view_id", viewID)
}

// Unregister removes a view if conn is still the one registered under viewID.
func (m *ViewManager) Unregister(viewID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[viewID]; ok && current.conn == conn {
		delete(m.active, viewID)
		slog.Info("Conversation view unmounted", "view_id", viewID)
	}
}

// CloseAll unmounts every view. Polling stops before it returns; the socket
// close handshakes finish in the background.
func (m *ViewManager) CloseAll(reason string) {
	m.mu.Lock()
	views := m.active
	m.active = make(map[string]mountedView)
	m.mu.Unlock()

	for id, mv := range views {
		if mv.view != nil {
			mv.view.Close()
		}
		if mv.conn != nil {
			go func(conn *websocket.Conn, viewID string) {
				if err := conn.Close(websocket.StatusNormalClosure, reason); err != nil {
					slog.Debug("Failed to close websocket", "error", err, "view_id", viewID)
				}
			}(mv.conn, id)
		}
		slog.Info("Conversation view closed", "view_id", id, "reason", reason)
	}
}

// Broadcast writes v as a JSON text frame to every mounted view.
func (m *ViewManager) Broadcast(ctx context.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode broadcast", "error", err)
		return
	}

	m.mu.RLock()
	conns := make(map[string]*websocket.Conn, len(m.active))
	for id, mv := range m.active {
		if mv.conn != nil {
			conns[id] = mv.conn
		}
	}
	m.mu.RUnlock()

	for id, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
			slog.Debug("Broadcast write failed", "view_id", id, "error", err)
		}
		cancel()
	}
}

// FollowNavigation tells every view about dashboard navigation and unmounts
// them all once the dashboard leaves the messages area.
func (m *ViewManager) FollowNavigation(nav *navigation.Navigator) (unsubscribe func()) {
	return nav.Subscribe(func(path string) {
		m.Broadcast(context.Background(), navigateFrame{Type: frameNavigate, Path: path})
		if path != navigation.MessagesPath && !strings.HasPrefix(path, navigation.MessagesPath+"/") {
			m.CloseAll("navigated away")
		}
	})
}
