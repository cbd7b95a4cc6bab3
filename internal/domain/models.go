// Package domain defines the core records persisted and served by the backend.
package domain

import "time"

// DefaultTitle is assigned to conversations created without a title.
const DefaultTitle = "Untitled Conversation"

// User is an identity record. Immutable after registration.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is a titled thread of messages owned by one user.
// UpdatedAt is bumped on every appended message and drives list ordering.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Topic          string    `json:"topic,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is one turn of a conversation. Append-only: never updated or
// reordered once written.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
