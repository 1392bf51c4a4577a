package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

// record is what the store keeps per browser session. A nil credential
// marks a resolved anonymous session.
type record struct {
	credential *identity.Credential
}

// Manager owns browser sessions: it stores provider credentials, resolves
// them on each request and is the only writer to the Observer.
type Manager struct {
	provider     identity.Provider
	observer     *Observer
	store        *cache.Cache
	anonymousTTL time.Duration
	now          func() time.Time
}

const defaultAnonymousTTL = 15 * time.Minute

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// TTL is how long an idle signed-in browser session is kept.
	TTL time.Duration
	// AnonymousTTL is how long a session without a credential is kept. It
	// never exceeds TTL.
	AnonymousTTL time.Duration
	// Sweep is how often expired sessions are purged.
	Sweep time.Duration
	Now   func() time.Time
}

// NewManager builds a manager publishing to observer.
func NewManager(provider identity.Provider, observer *Observer, cfg ManagerConfig) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if observer == nil {
		return nil, errors.New("session observer is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.AnonymousTTL <= 0 {
		cfg.AnonymousTTL = defaultAnonymousTTL
	}
	if cfg.AnonymousTTL > cfg.TTL {
		cfg.AnonymousTTL = cfg.TTL
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	store := cache.New(cfg.TTL, cfg.Sweep)
	store.OnEvicted(func(sessionID string, _ interface{}) {
		observer.Forget(sessionID)
	})
	return &Manager{
		provider:     provider,
		observer:     observer,
		store:        store,
		anonymousTTL: cfg.AnonymousTTL,
		now:          cfg.Now,
	}, nil
}

// Observer returns the observer the manager publishes to.
func (m *Manager) Observer() *Observer {
	return m.observer
}

// NewSessionID mints a browser session identifier.
func (m *Manager) NewSessionID() string {
	return uuid.NewString()
}

// Resolve settles the state of sessionID, dropping credentials whose ID
// token has expired, and publishes the result.
func (m *Manager) Resolve(_ context.Context, sessionID string) State {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return State{}
	}

	state := State{}
	if cred, ok := m.Credential(sessionID); ok {
		if cred.Expired(m.now()) {
			m.store.Set(sessionID, record{}, m.anonymousTTL)
		} else {
			id := cred.Identity
			state.Identity = &id
			// Touch to extend the idle TTL.
			m.store.SetDefault(sessionID, record{credential: &cred})
		}
	} else {
		m.store.Set(sessionID, record{}, m.anonymousTTL)
	}
	m.observer.Publish(sessionID, state)
	return state
}

// SignedIn stores cred for sessionID and publishes the identity.
func (m *Manager) SignedIn(sessionID string, cred identity.Credential) State {
	sessionID = strings.TrimSpace(sessionID)
	stored := cred
	m.store.SetDefault(sessionID, record{credential: &stored})
	id := cred.Identity
	state := State{Identity: &id}
	m.observer.Publish(sessionID, state)
	return state
}

// Credential returns the stored credential for sessionID.
func (m *Manager) Credential(sessionID string) (identity.Credential, bool) {
	value, ok := m.store.Get(strings.TrimSpace(sessionID))
	if !ok {
		return identity.Credential{}, false
	}
	rec, ok := value.(record)
	if !ok || rec.credential == nil {
		return identity.Credential{}, false
	}
	return *rec.credential, true
}

// SignOut asks the provider to end the session, then clears it locally and
// publishes absence whatever the provider answered. The provider error is
// returned for logging.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	var err error
	if cred, ok := m.Credential(sessionID); ok {
		err = m.provider.SignOut(ctx, cred)
	}
	m.store.Set(sessionID, record{}, m.anonymousTTL)
	m.observer.Publish(sessionID, State{})
	return err
}

// Expire drops sessionID immediately.
func (m *Manager) Expire(sessionID string) {
	m.store.Delete(strings.TrimSpace(sessionID))
}

// Sessions returns how many browser sessions are stored.
func (m *Manager) Sessions() int {
	return m.store.ItemCount()
}
