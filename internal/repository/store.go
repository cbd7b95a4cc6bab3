// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// MaxPageSize is the hard cap on a single message page read.
const MaxPageSize = 200

// DefaultPageSize is used when the caller does not specify a limit.
const DefaultPageSize = 50

// Store defines the interface for data persistence.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// Conversation registry operations. Ownership is NOT enforced here;
	// callers must check conversation.UserID before mutating.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	UpdateConversation(ctx context.Context, conversationID string, title, topic *string) (*domain.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error

	// Message log operations. Appends are atomic: the message insert and
	// the conversation updated_at bump commit in one transaction.
	AppendMessage(ctx context.Context, conversationID string, sender domain.Sender, content string, ts time.Time) (*domain.Message, error)
	GetMessages(ctx context.Context, conversationID string, offset, limit int) ([]domain.Message, bool, error)
	RecentMessages(ctx context.Context, conversationID string, n int) ([]domain.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)

	// Lifecycle
	Close() error
}
