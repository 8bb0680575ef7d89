package auth

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain/repositories"
)

// TokenSession is the identity of one connection, backed by a JWT.
// It signs out on its own when the token expires.
type TokenSession struct {
	issuer *Issuer
	logger *zap.Logger

	mu          sync.Mutex
	current     *repositories.Identity
	expiry      *time.Timer
	subscribers map[int]func(repositories.Identity, bool)
	nextID      int
}

// NewTokenSession creates a signed-out session
func NewTokenSession(issuer *Issuer, logger *zap.Logger) *TokenSession {
	return &TokenSession{
		issuer:      issuer,
		logger:      logger,
		subscribers: make(map[int]func(repositories.Identity, bool)),
	}
}

// Authenticate validates the token and signs its user in
func (s *TokenSession) Authenticate(token string) (repositories.Identity, error) {
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return repositories.Identity{}, err
	}
	id := repositories.Identity{UserID: claims.UserID, Email: claims.Email}

	s.mu.Lock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		s.expiry = time.AfterFunc(ttl, func() {
			s.logger.Info("Token expired", zap.String("userID", id.UserID))
			s.SignOut()
		})
	}
	same := s.current != nil && *s.current == id
	s.current = &id
	subscribers := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	if !same {
		for _, fn := range subscribers {
			fn(id, true)
		}
	}
	return id, nil
}

// Current implements repositories.IdentityProvider
func (s *TokenSession) Current() (repositories.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return repositories.Identity{}, false
	}
	return *s.current, true
}

// Subscribe implements repositories.IdentityProvider
func (s *TokenSession) Subscribe(fn func(repositories.Identity, bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SignOut implements repositories.IdentityProvider
func (s *TokenSession) SignOut() {
	s.mu.Lock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	previous := *s.current
	s.current = nil
	subscribers := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	s.logger.Info("Signed out", zap.String("userID", previous.UserID))
	for _, fn := range subscribers {
		fn(previous, false)
	}
}

func (s *TokenSession) snapshotSubscribersLocked() []func(repositories.Identity, bool) {
	out := make([]func(repositories.Identity, bool), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		out = append(out, fn)
	}
	return out
}
