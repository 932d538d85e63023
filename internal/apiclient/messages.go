package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ashureev/marketdesk/internal/domain"
)

type outgoingMessage struct {
	Receiver int64  `json:"receiver"`
	Content  string `json:"content"`
}

// Conversations returns the conversation index, newest first.
func (c *Client) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	var out []domain.Conversation
	if err := c.Do(ctx, http.MethodGet, "/messages/conversations/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages returns the thread with partnerID in backend order.
func (c *Client) Messages(ctx context.Context, partnerID int64) ([]domain.Message, error) {
	q := url.Values{"user_id": {strconv.FormatInt(partnerID, 10)}}
	var out []domain.Message
	if err := c.Do(ctx, http.MethodGet, "/messages/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts content to receiverID and returns the stored message.
func (c *Client) SendMessage(ctx context.Context, receiverID int64, content string) (*domain.Message, error) {
	var out domain.Message
	body := outgoingMessage{Receiver: receiverID, Content: content}
	if err := c.Do(ctx, http.MethodPost, "/messages/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
