// Package home serves the signed-in landing screen and sign-out.
package home

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/louisbranch/babylon-auth/internal/services/web/platform/metrics"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/navigation"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

// Outcome classifies how a Logout call ended. Values double as metric
// labels.
type Outcome string

const (
	OutcomeSkipped = Outcome(metrics.OutcomeSkipped)
	OutcomeSuccess = Outcome(metrics.OutcomeSuccess)
	OutcomeFailure = Outcome(metrics.OutcomeFailure)
)

// SessionEnder clears a browser session.
type SessionEnder interface {
	SignOut(ctx context.Context, sessionID string) error
}

// ScreenConfig wires a Screen to its collaborators.
type ScreenConfig struct {
	SessionID string
	Sessions  SessionEnder
	Observer  session.Subscriber
	Navigator navigation.Navigator
}

// Screen is one instance of the landing screen.
type Screen struct {
	sessionID string
	sessions  SessionEnder
	observer  session.Subscriber
	nav       navigation.Navigator

	mu          sync.Mutex
	state       session.State
	loggingOut  bool
	unsubscribe func()
}

// NewScreen builds a landing screen from cfg.
func NewScreen(cfg ScreenConfig) (*Screen, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Observer == nil {
		return nil, errors.New("session observer is required")
	}
	if cfg.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	return &Screen{
		sessionID: strings.TrimSpace(cfg.SessionID),
		sessions:  cfg.Sessions,
		observer:  cfg.Observer,
		nav:       cfg.Navigator,
		state:     session.State{Loading: true},
	}, nil
}

// Mount starts watching the session. Every update that settles without an
// identity navigates back to the auth screen.
func (s *Screen) Mount() {
	s.mu.Lock()
	mounted := s.unsubscribe != nil
	s.mu.Unlock()
	if mounted {
		return
	}
	unsubscribe := s.observer.Subscribe(s.sessionID, s.react)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// Unmount stops watching the session.
func (s *Screen) Unmount() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Screen) react(state session.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if !state.Loading && state.Identity == nil {
		s.nav.Replace(routepath.Root)
	}
}

// State returns the last session state seen by the screen.
func (s *Screen) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DisplayName returns the signed-in display name as stored, or "" when
// unknown.
func (s *Screen) DisplayName() string {
	state := s.State()
	if state.Identity == nil {
		return ""
	}
	return state.Identity.DisplayName
}

// LoggingOut reports whether a sign-out is in flight.
func (s *Screen) LoggingOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggingOut
}

// Logout ends the session and navigates to the auth screen whether or not
// the provider accepted the sign-out. Provider failures are logged only.
func (s *Screen) Logout(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.loggingOut {
		s.mu.Unlock()
		return OutcomeSkipped
	}
	s.loggingOut = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loggingOut = false
		s.mu.Unlock()
	}()

	outcome := OutcomeSuccess
	if err := s.sessions.SignOut(ctx, s.sessionID); err != nil {
		log.Printf("warning: sign out failed: session=%s op=signout err=%v", s.sessionID, err)
		outcome = OutcomeFailure
	}
	s.nav.Replace(routepath.Root)
	return outcome
}
