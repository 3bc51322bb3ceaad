package session

import (
	"fmt"
	"log"
	"sync"
)

// State is the authentication state of a Session.
type State int

const (
	// Anonymous sessions hold no token.
	Anonymous State = iota
	// AssumedAuthenticated sessions were restored from storage and have not
	// yet completed an authenticated request.
	AssumedAuthenticated
	// VerifiedAuthenticated sessions logged in, or had a stored token
	// accepted by the backend.
	VerifiedAuthenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AssumedAuthenticated:
		return "assumed_authenticated"
	case VerifiedAuthenticated:
		return "verified_authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session holds the bearer token used by the API client. It is safe for
// concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	state     State
	store     Persister
	listeners []func()
	logger    *log.Logger
}

// New restores a session from p. A stored token is trusted optimistically;
// its validity is discovered on the first authenticated request.
func New(p Persister) (*Session, error) {
	token, err := p.Load()
	if err != nil {
		return nil, err
	}
	s := &Session{store: p, token: token, logger: log.Default()}
	if token != "" {
		s.state = AssumedAuthenticated
	}
	return s, nil
}

// Token returns the current bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.State() != Anonymous
}

// Establish stores a freshly issued token.
func (s *Session) Establish(token string) error {
	if token == "" {
		return fmt.Errorf("empty session token")
	}
	s.mu.Lock()
	s.token = token
	s.state = VerifiedAuthenticated
	s.mu.Unlock()

	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// MarkVerified promotes an assumed session once the backend accepted its token.
func (s *Session) MarkVerified(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The token may have been replaced while the request was in flight.
	if s.state == AssumedAuthenticated && s.token == token {
		s.state = VerifiedAuthenticated
	}
}

// OnInvalidate registers fn to run whenever the session drops back to anonymous.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Invalidate clears the token after the backend rejected it. Only the token
// that was actually rejected is cleared; a newer login survives.
func (s *Session) Invalidate(rejected string) {
	s.mu.Lock()
	if s.state == Anonymous || (rejected != "" && rejected != s.token) {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	listeners := append([]func(){}, s.listeners...)
	logger := s.logger
	s.mu.Unlock()

	logger.Printf("session invalidated by the backend")
	for _, fn := range listeners {
		fn()
	}
}

// SetLogger replaces the logger used for invalidation and storage warnings.
func (s *Session) SetLogger(l *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// Logout clears the token at the user's request. Invalidation listeners are
// not called.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Session) clearLocked() error {
	s.token = ""
	s.state = Anonymous
	if err := s.store.Clear(); err != nil {
		s.logger.Printf("Warning: could not clear persisted session: %v", err)
		return err
	}
	return nil
}
