// Package session holds the authentication token for the current process.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned by Require when no token is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// Persister saves the single token value between runs.
type Persister interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Store holds at most one token. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	token     string
	persister Persister
	logger    zerolog.Logger
}

// NewStore creates a store. When persister is non-nil the saved token, if
// any, is loaded immediately.
func NewStore(persister Persister, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		persister: persister,
		logger:    logger.With().Str("component", "session").Logger(),
	}
	if persister == nil {
		return s, nil
	}

	token, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.token = token
	if token != "" {
		s.logger.Debug().Msg("Restored saved session")
	}
	return s, nil
}

// SetToken replaces the current token. An empty token clears the session.
func (s *Store) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Save(token); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	s.logger.Debug().Msg("Session token set")
	return nil
}

// Token returns the current token, or "" when logged out. It satisfies
// catalog.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear removes the token.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	s.logger.Debug().Msg("Session cleared")
	return nil
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Require returns ErrNotAuthenticated when no token is present.
func (s *Store) Require() error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}
