package publicauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/metrics"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/navigation"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

// Outcome classifies how a Submit call ended. Values double as metric
// labels.
type Outcome string

const (
	OutcomeSkipped       Outcome = metrics.OutcomeSkipped
	OutcomeSuccess       Outcome = metrics.OutcomeSuccess
	OutcomeProviderError Outcome = metrics.OutcomeProviderError
	OutcomeFailure       Outcome = metrics.OutcomeFailure
)

// SessionStore records a successful sign-in for a browser session.
type SessionStore interface {
	SignedIn(sessionID string, cred identity.Credential) session.State
}

// ScreenConfig wires a Screen to its collaborators.
type ScreenConfig struct {
	SessionID string
	Provider  identity.Provider
	Sessions  SessionStore
	Observer  session.Subscriber
	Navigator navigation.Navigator
	// Flights, when set, coalesces identical in-flight submits of the same
	// browser session into one provider exchange.
	Flights *singleflight.Group
	Form    Form
}

// Screen is one instance of the auth screen.
type Screen struct {
	sessionID string
	provider  identity.Provider
	sessions  SessionStore
	observer  session.Subscriber
	nav       navigation.Navigator
	flights   *singleflight.Group

	mu          sync.Mutex
	form        Form
	unsubscribe func()
}

// NewScreen builds a screen from cfg. The form starts idle and without an
// error whatever cfg.Form says.
func NewScreen(cfg ScreenConfig) (*Screen, error) {
	if cfg.Provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Observer == nil {
		return nil, errors.New("session observer is required")
	}
	if cfg.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	form := cfg.Form
	form.Mode = ParseMode(string(form.Mode))
	form.Submitting = false
	form.Error = ""
	return &Screen{
		sessionID: strings.TrimSpace(cfg.SessionID),
		provider:  cfg.Provider,
		sessions:  cfg.Sessions,
		observer:  cfg.Observer,
		nav:       cfg.Navigator,
		flights:   cfg.Flights,
		form:      form,
	}, nil
}

// Mount starts watching the session. Every update that settles on a
// signed-in identity navigates to the landing page.
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
	if !state.Loading && state.Identity != nil {
		s.nav.Replace(routepath.Home)
	}
}

// Form returns a snapshot of the form state.
func (s *Screen) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// CanSubmit reports whether the current form may be submitted.
func (s *Screen) CanSubmit() bool {
	return CanSubmit(s.Form())
}

// Submit sends the form to the identity provider. It does nothing when the
// form is incomplete or a submit is already in flight. On success the new
// session is recorded and the screen navigates to the landing page; on
// failure the form error holds the message to display.
func (s *Screen) Submit(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.form.Submitting || !CanSubmit(s.form) {
		s.mu.Unlock()
		return OutcomeSkipped
	}
	s.form.Submitting = true
	s.form.Error = ""
	form := s.form
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.form.Submitting = false
		s.mu.Unlock()
	}()

	cred, err := s.exchange(ctx, form)
	if err != nil {
		s.mu.Lock()
		s.form.Error = MessageFor(err)
		s.mu.Unlock()
		code, ok := identity.CodeOf(err)
		if !ok {
			log.Printf("auth submit failed: session=%s op=%s err=%v", s.sessionID, form.Mode, err)
			return OutcomeFailure
		}
		if _, known := codeMessages[code]; !known {
			log.Printf("auth submit unexpected provider error: session=%s op=%s code=%s err=%v", s.sessionID, form.Mode, code, err)
		}
		return OutcomeProviderError
	}

	s.sessions.SignedIn(s.sessionID, cred)
	s.nav.Replace(routepath.Home)
	return OutcomeSuccess
}

func (s *Screen) exchange(ctx context.Context, form Form) (identity.Credential, error) {
	if s.flights == nil {
		return s.authenticate(ctx, form)
	}
	// The shared call outlives any single joined request; each caller stops
	// waiting when its own request ends.
	shared := context.WithoutCancel(ctx)
	results := s.flights.DoChan(flightKey(s.sessionID, form), func() (any, error) {
		return s.authenticate(shared, form)
	})
	var result singleflight.Result
	select {
	case result = <-results:
	case <-ctx.Done():
		return identity.Credential{}, ctx.Err()
	}
	if result.Err != nil {
		return identity.Credential{}, result.Err
	}
	cred, ok := result.Val.(identity.Credential)
	if !ok {
		return identity.Credential{}, errors.New("unexpected shared submit result")
	}
	return cred, nil
}

func (s *Screen) authenticate(ctx context.Context, form Form) (identity.Credential, error) {
	if form.Mode == ModeLogin {
		return s.provider.SignIn(ctx, form.Email, form.Password)
	}

	cred, err := s.provider.CreateAccount(ctx, form.Email, form.Password)
	if err != nil {
		return identity.Credential{}, err
	}
	profile := identity.Profile{DisplayName: form.FullName}.Normalize()
	cred, err = s.provider.UpdateProfile(ctx, cred, profile)
	if err != nil {
		return identity.Credential{}, err
	}
	return s.provider.Reload(ctx, cred)
}

// flightKey identifies a submit by browser session and form contents
// without keeping the password in the key.
func flightKey(sessionID string, form Form) string {
	sum := sha256.New()
	for _, part := range []string{string(form.Mode), form.Email, strings.TrimSpace(form.FullName), form.Password} {
		sum.Write([]byte(part))
		sum.Write([]byte{0})
	}
	return sessionID + ":" + hex.EncodeToString(sum.Sum(nil))
}
