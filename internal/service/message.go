package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// ConversationMessages returns one page of a conversation's history for a
// user allowed to read it.
func (s *Service) ConversationMessages(ctx context.Context, userID, conversationID string, skip, limit int) (*domain.Conversation, []domain.Message, bool, error) {
	conv, err := s.authorizeConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, false, err
	}

	messages, hasMore, err := s.store.GetMessages(ctx, conversationID, skip, limit)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to get messages: %w", err)
	}
	return conv, messages, hasMore, nil
}

// Exchange runs one request/response cycle for a bound conversation: the
// user message is durably appended, a reply is generated (falling back on
// agent failure), and the reply is durably appended before it is returned.
// An error here means a storage fault; agent faults never surface.
func (s *Service) Exchange(ctx context.Context, conversationID, content string) (string, error) {
	// Warm the session before persisting the user turn and hold the handle
	// across the append, so no seed (initial or post-eviction) can contain
	// the message being generated for.
	h, err := s.sessions.GetOrCreate(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}

	if _, err := s.store.AppendMessage(ctx, conversationID, domain.SenderUser, content, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to append user message: %w", err)
	}

	reply := s.sessions.Generate(ctx, h, content)

	if _, err := s.store.AppendMessage(ctx, conversationID, domain.SenderAgent, reply, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to append agent message: %w", err)
	}
	return reply, nil
}
