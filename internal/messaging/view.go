// Package messaging drives the conversation view: the conversation index,
// the active conversation's message list and its periodic refresh.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
)

// DefaultInterval is the message refresh period of an active conversation.
const DefaultInterval = 5 * time.Second

// ErrViewClosed is returned by operations on a closed View.
var ErrViewClosed = errors.New("messaging: view closed")

// API is the slice of the backend the view needs.
type API interface {
	Conversations(ctx context.Context) ([]domain.Conversation, error)
	Messages(ctx context.Context, partnerID int64) ([]domain.Message, error)
	SendMessage(ctx context.Context, receiverID int64, content string) (*domain.Message, error)
}

// IdentityFunc returns the current user's account id, or 0 when unknown.
type IdentityFunc func() int64

// EventKind distinguishes view events.
type EventKind string

const (
	EventState  EventKind = "state"
	EventNotice EventKind = "notice"
)

// Event is emitted to the listener whenever the rendered view changes or a
// user-visible notice is raised.
type Event struct {
	Kind   EventKind
	State  RenderState
	Notice string
}

// Listener receives view events. It is never called with the view lock held.
type Listener func(Event)

// RenderedMessage is a message annotated with its side of the conversation.
type RenderedMessage struct {
	domain.Message
	Mine bool `json:"mine"`
}

// RenderState is everything needed to draw the view.
type RenderState struct {
	Partner       *domain.Partner       `json:"partner"`
	Conversations []domain.Conversation `json:"conversations"`
	Messages      []RenderedMessage     `json:"messages"`
	Draft         string                `json:"draft"`
}

// pollHandle is the live refresh loop of one selected conversation.
type pollHandle struct {
	gen    uint64
	cancel context.CancelFunc
	ticker Ticker
}

func (h *pollHandle) stop() {
	h.cancel()
	h.ticker.Stop()
}

type Option func(*View)

// WithInterval sets the refresh period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.interval = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(v *View) {
		v.clock = c
	}
}

func WithListener(l Listener) Option {
	return func(v *View) {
		v.listener = l
	}
}

// View is one mounted conversation view. At most one poll handle is live.
type View struct {
	api      API
	identity IdentityFunc
	clock    Clock
	interval time.Duration
	listener Listener

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	closed        bool
	gen           uint64
	handle        *pollHandle
	partner       *domain.Partner
	conversations []domain.Conversation
	messages      []domain.Message
	draft         string
}

// NewView mounts a view with no conversation selected.
func NewView(api API, identity IdentityFunc, opts ...Option) *View {
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		api:      api,
		identity: identity,
		clock:    realClock{},
		interval: DefaultInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Select makes partner the active conversation. The previous poll handle is
// stopped before the new one is armed; the message list is cleared and then
// fetched immediately.
func (v *View) Select(ctx context.Context, partner domain.Partner) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.stopLocked()
	v.gen++
	gen := v.gen
	v.partner = &partner
	v.messages = nil

	pollCtx, cancel := context.WithCancel(v.ctx)
	h := &pollHandle{gen: gen, cancel: cancel, ticker: v.clock.NewTicker(v.interval)}
	v.handle = h
	v.mu.Unlock()

	slog.Debug("Conversation selected", "partner_id", partner.ID)
	go v.poll(pollCtx, h, partner.ID)

	v.emitState()
	return v.fetchMessages(ctx, gen, partner.ID)
}

func (v *View) poll(ctx context.Context, h *pollHandle, partnerID int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ticker.C():
			if ctx.Err() != nil {
				return
			}
			_ = v.fetchMessages(ctx, h.gen, partnerID)
		}
	}
}

// Deselect returns the view to no conversation selected.
func (v *View) Deselect() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.stopLocked()
	v.gen++
	v.partner = nil
	v.messages = nil
	v.mu.Unlock()

	v.emitState()
}

// Close unmounts the view and cancels every pending refresh. It is safe to
// call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.stopLocked()
	v.gen++
	v.mu.Unlock()

	v.cancel()
}

func (v *View) stopLocked() {
	if v.handle != nil {
		v.handle.stop()
		v.handle = nil
	}
}

// fetchMessages replaces the message list unless the conversation has
// changed since gen was issued.
func (v *View) fetchMessages(ctx context.Context, gen uint64, partnerID int64) error {
	msgs, err := v.api.Messages(ctx, partnerID)

	v.mu.Lock()
	if v.closed || v.gen != gen {
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		slog.Warn("Failed to fetch messages", "partner_id", partnerID, "error", err)
		return err
	}
	v.messages = msgs
	v.mu.Unlock()

	v.emitState()
	return nil
}

// RefreshConversations replaces the conversation index. On failure the last
// known index is kept.
func (v *View) RefreshConversations(ctx context.Context) error {
	convs, err := v.api.Conversations(ctx)
	if err != nil {
		slog.Warn("Failed to fetch conversations", "error", err)
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.conversations = convs
	v.mu.Unlock()

	v.emitState()
	return nil
}

// SetDraft records the text being composed.
func (v *View) SetDraft(content string) {
	v.mu.Lock()
	v.draft = content
	v.mu.Unlock()
}

// Send posts content to the active partner. Blank content or no active
// conversation is rejected without a network call. On success the draft is
// cleared and both the messages and the index are refreshed once.
func (v *View) Send(ctx context.Context, content string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.draft = content
	partner := v.partner
	gen := v.gen
	v.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return apperr.New(apperr.CodeValidation, "message is empty", nil)
	}
	if partner == nil {
		return apperr.New(apperr.CodeValidation, "no conversation selected", nil)
	}

	if _, err := v.api.SendMessage(ctx, partner.ID, content); err != nil {
		slog.Warn("Failed to send message", "partner_id", partner.ID, "error", err)
		v.emit(Event{Kind: EventNotice, Notice: "Failed to send message"})
		return err
	}

	v.mu.Lock()
	if v.draft == content {
		v.draft = ""
	}
	v.mu.Unlock()

	if err := v.fetchMessages(ctx, gen, partner.ID); err != nil {
		slog.Debug("Message refresh after send failed", "error", err)
	}
	if err := v.RefreshConversations(ctx); err != nil && !errors.Is(err, ErrViewClosed) {
		slog.Debug("Conversation refresh after send failed", "error", err)
	}
	return nil
}

// State renders the view. Ownership of each message is computed against
// the identity at call time.
func (v *View) State() RenderState {
	me := int64(0)
	if v.identity != nil {
		me = v.identity()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	st := RenderState{
		Conversations: append([]domain.Conversation(nil), v.conversations...),
		Messages:      make([]RenderedMessage, 0, len(v.messages)),
		Draft:         v.draft,
	}
	if v.partner != nil {
		p := *v.partner
		st.Partner = &p
	}
	for _, m := range v.messages {
		st.Messages = append(st.Messages, RenderedMessage{Message: m, Mine: me != 0 && m.Sender == me})
	}
	return st
}

func (v *View) emitState() {
	if v.listener == nil {
		return
	}
	v.listener(Event{Kind: EventState, State: v.State()})
}

func (v *View) emit(e Event) {
	if v.listener != nil {
		v.listener(e)
	}
}
