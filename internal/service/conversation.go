package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// CreateConversation creates a conversation owned by userID.
func (s *Service) CreateConversation(ctx context.Context, userID, title, topic string) (*domain.Conversation, error) {
	if title == "" {
		title = domain.DefaultTitle
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ConversationID: "conv_" + uuid.New().String()[:8],
		UserID:         userID,
		Title:          title,
		Topic:          topic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations lists the user's conversations, most recently updated
// first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// GetConversation returns a conversation the user is allowed to access.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	return s.authorizeConversation(ctx, userID, conversationID)
}

// UpdateConversation updates title and/or topic and touches updated_at.
func (s *Service) UpdateConversation(ctx context.Context, userID, conversationID string, title, topic *string) (*domain.Conversation, error) {
	if _, err := s.authorizeConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if title != nil && *title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
	}
	return s.store.UpdateConversation(ctx, conversationID, title, topic)
}

// DeleteConversation deletes a conversation and all of its messages, and
// drops any cached session state for it.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.authorizeConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	s.sessions.Evict(conversationID)
	return nil
}

// authorizeConversation loads a conversation and checks access through the
// policy engine. A denied conversation is reported as ErrNotFound so a
// caller cannot distinguish "missing" from "not yours".
func (s *Service) authorizeConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}

	allowed, err := s.policy.Allow(ctx, userID, conv.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate access policy: %w", err)
	}
	if !allowed {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}
