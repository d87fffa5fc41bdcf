package fsapi

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionState is the lifecycle state of the device session.
type SessionState int

const (
	SessionUnauthenticated SessionState = iota
	SessionAuthenticating
	SessionActive
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionUnauthenticated:
		return "unauthenticated"
	case SessionAuthenticating:
		return "authenticating"
	case SessionActive:
		return "active"
	case SessionExpired:
		return "expired"
	default:
		return "unknown"
	}
}

type sessionToken struct {
	id  string
	gen uint64
}

// session owns the session id. Every successful CREATE_SESSION bumps the
// generation; stale generations can neither expire a newer session nor fill
// the caches of one.
type session struct {
	mu    sync.Mutex
	state SessionState
	id    string
	gen   uint64

	flight       singleflight.Group
	authenticate func(context.Context) (string, error)
	onReset      func()
}

func newSession(authenticate func(context.Context) (string, error), onReset func()) *session {
	return &session{
		state:        SessionUnauthenticated,
		authenticate: authenticate,
		onReset:      onReset,
	}
}

// Ensure returns the active session id, authenticating first if needed.
// Concurrent callers share one CREATE_SESSION; a caller whose context ends
// stops waiting but does not cancel the handshake for the others.
func (s *session) Ensure(ctx context.Context) (string, uint64, error) {
	s.mu.Lock()
	if s.state == SessionActive {
		id, gen := s.id, s.gen
		s.mu.Unlock()
		return id, gen, nil
	}
	seen := s.gen
	s.mu.Unlock()

	ch := s.flight.DoChan("create", func() (any, error) {
		return s.login(seen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", 0, res.Err
		}
		token := res.Val.(sessionToken)
		return token.id, token.gen, nil
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

func (s *session) login(seen uint64) (sessionToken, error) {
	s.mu.Lock()
	if s.state == SessionActive && s.gen != seen {
		token := sessionToken{id: s.id, gen: s.gen}
		s.mu.Unlock()
		return token, nil
	}
	s.state = SessionAuthenticating
	s.mu.Unlock()

	id, err := s.authenticate(context.Background())

	s.mu.Lock()
	if err != nil {
		s.state = SessionUnauthenticated
		s.id = ""
		s.mu.Unlock()
		return sessionToken{}, err
	}
	s.state = SessionActive
	s.id = id
	s.gen++
	token := sessionToken{id: s.id, gen: s.gen}
	s.mu.Unlock()

	s.reset()
	return token, nil
}

// Expire marks the session as rejected if gen is still the current session.
func (s *session) Expire(gen uint64) bool {
	s.mu.Lock()
	if s.state != SessionActive || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.state = SessionExpired
	s.id = ""
	s.mu.Unlock()

	s.reset()
	return true
}

// Clear drops the session without contacting the device.
func (s *session) Clear() (string, bool) {
	s.mu.Lock()
	id := s.id
	wasActive := s.state == SessionActive
	s.state = SessionUnauthenticated
	s.id = ""
	s.mu.Unlock()

	s.reset()
	return id, wasActive
}

func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *session) reset() {
	if s.onReset != nil {
		s.onReset()
	}
}
