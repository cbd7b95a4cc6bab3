package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

const (
	maxUsernameLen = 64
	minPasswordLen = 6
)

// Register creates a new user and returns an access token.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if err := validateCredentials(username, password); err != nil {
		return "", err
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		UserID:       "user_" + uuid.New().String()[:8],
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", err
	}

	return s.auth.IssueToken(username)
}

// Login validates credentials and returns an access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrUnauthorized
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !s.auth.VerifyPassword(password, user.PasswordHash) {
		return "", domain.ErrUnauthorized
	}

	return s.auth.IssueToken(username)
}

// UserByToken resolves a bearer token to its user record.
func (s *Service) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	username, err := s.auth.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func validateCredentials(username, password string) error {
	if username == "" || len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be 1-%d characters", domain.ErrValidation, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}
	return nil
}
