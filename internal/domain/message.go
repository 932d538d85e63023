package domain

import "time"

// Message is a single direct message between two accounts.
type Message struct {
	ID           int64     `json:"id"`
	Sender       int64     `json:"sender"`
	SenderName   string    `json:"sender_name"`
	Receiver     int64     `json:"receiver"`
	ReceiverName string    `json:"receiver_name"`
	Content      string    `json:"content"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is one entry of the conversation index, keyed by partner id.
type Conversation struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	LastMessage string    `json:"last_message"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
}

// Partner identifies the other participant of the active conversation.
type Partner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
