package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/guard"
	"github.com/ashureev/marketdesk/internal/messaging"
	"github.com/ashureev/marketdesk/internal/navigation"
)

// Frame types exchanged on the conversation socket.
const (
	frameSelect   = "select"
	frameDeselect = "deselect"
	frameSend     = "send"
	frameDraft    = "draft"
	frameRefresh  = "refresh"
	framePing     = "ping"

	frameState    = "state"
	frameNotice   = "notice"
	frameNavigate = "navigate"
	framePong     = "pong"
)

// clientFrame is a message from the browser.
type clientFrame struct {
	Type        string `json:"type"`
	PartnerID   int64  `json:"partner_id,omitempty"`
	PartnerName string `json:"partner_name,omitempty"`
	Content     string `json:"content,omitempty"`
}

type stateFrame struct {
	Type string `json:"type"`
	messaging.RenderState
}

type noticeFrame struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type navigateFrame struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// ConversationHandler serves the conversation view.
type ConversationHandler struct {
	*Handler
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(base *Handler) *ConversationHandler {
	return &ConversationHandler{Handler: base}
}

// RegisterRoutes registers the messages area.
func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Route(navigation.MessagesPath, func(r chi.Router) {
		r.Use(guard.Middleware(h.sess, MessagesArea))
		r.Get("/", h.Page)
		r.Get("/conversations", h.Conversations)
		r.Get("/ws", h.ServeWS)
	})
}

func (h *ConversationHandler) Page(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"page":    "messages",
		"profile": guard.ProfileFromContext(r.Context()),
	})
}

// Conversations returns the conversation index.
func (h *ConversationHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.backend.Conversations(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, convs)
}

// identity returns the account id of the session's profile.
func (h *ConversationHandler) identity() int64 {
	return h.sess.Snapshot().Profile.IdentityID()
}

// ServeWS mounts a conversation view for the lifetime of one socket.
func (h *ConversationHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	viewID := uuid.NewString()
	slog.Info("Conversation socket request", "view_id", viewID, "user_id", h.identity(), "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "view_id", viewID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "view closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "view_id", viewID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opts := []messaging.Option{
		messaging.WithListener(func(e messaging.Event) { h.deliver(ctx, ws, e) }),
	}
	if h.cfg != nil {
		opts = append(opts, messaging.WithInterval(h.cfg.Poll.Interval))
	}
	view := messaging.NewView(h.backend, h.identity, opts...)
	defer view.Close()

	h.views.Register(viewID, ws, view)
	defer h.views.Unregister(viewID, ws)

	if err := view.RefreshConversations(ctx); err != nil {
		h.writeNotice(ctx, ws, "Failed to load conversations")
		h.writeJSON(ctx, ws, stateFrame{Type: frameState, RenderState: view.State()})
	}

	h.readLoop(ctx, ws, view, viewID)
	slog.Info("Conversation view ended", "view_id", viewID)
}

func (h *ConversationHandler) checkOrigin(r *http.Request) bool {
	if h.cfg == nil || h.cfg.IsDevelopment() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.cfg.AllowedOrigins, "*") || slices.Contains(h.cfg.AllowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.cfg.AllowedOrigins)
	return false
}

func (h *ConversationHandler) readLoop(ctx context.Context, ws *websocket.Conn, view *messaging.View, viewID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "view_id", viewID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "view_id", viewID)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			h.writeNotice(ctx, ws, "Malformed message")
			continue
		}

		switch frame.Type {
		case frameSelect:
			if frame.PartnerID <= 0 {
				h.writeNotice(ctx, ws, "partner_id is required")
				continue
			}
			partner := domain.Partner{ID: frame.PartnerID, Name: frame.PartnerName}
			if err := view.Select(ctx, partner); err != nil {
				slog.Debug("Select failed", "view_id", viewID, "partner_id", partner.ID, "error", err)
				h.writeNotice(ctx, ws, "Failed to load messages")
			}
		case frameDeselect:
			view.Deselect()
		case frameDraft:
			view.SetDraft(frame.Content)
		case frameSend:
			if err := view.Send(ctx, frame.Content); err != nil && apperr.Is(err, apperr.CodeValidation) {
				h.writeNotice(ctx, ws, apperr.ReasonOf(err))
			}
		case frameRefresh:
			if err := view.RefreshConversations(ctx); err != nil {
				h.writeNotice(ctx, ws, "Failed to load conversations")
			}
		case framePing:
			h.writeJSON(ctx, ws, map[string]string{"type": framePong})
		default:
			h.writeNotice(ctx, ws, "Unknown message type "+frame.Type)
		}
	}
}

// deliver renders a view event onto the socket.
func (h *ConversationHandler) deliver(ctx context.Context, ws *websocket.Conn, e messaging.Event) {
	switch e.Kind {
	case messaging.EventState:
		h.writeJSON(ctx, ws, stateFrame{Type: frameState, RenderState: e.State})
	case messaging.EventNotice:
		h.writeNotice(ctx, ws, e.Notice)
	}
}

func (h *ConversationHandler) writeNotice(ctx context.Context, ws *websocket.Conn, message string) {
	h.writeJSON(ctx, ws, noticeFrame{Type: frameNotice, Level: "error", Message: message})
}

func (h *ConversationHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) {
	if ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode frame", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}
