// Package service implements the application logic between transports and
// the store, session manager, and auth components.
package service

import (
	"github.com/NoManNayeem/AgenTick/internal/auth"
	"github.com/NoManNayeem/AgenTick/internal/policy"
	store "github.com/NoManNayeem/AgenTick/internal/repository"
	"github.com/NoManNayeem/AgenTick/internal/session"
)

type Service struct {
	store    store.Store
	sessions *session.Manager
	auth     *auth.Authenticator
	policy   *policy.Engine
}

func New(store store.Store, sessions *session.Manager, auth *auth.Authenticator, policyEngine *policy.Engine) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		auth:     auth,
		policy:   policyEngine,
	}
}
