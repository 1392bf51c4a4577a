package publicauth

import (
	"context"
	"sync"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

type fakeProvider struct {
	mu        sync.Mutex
	calls     []string
	profiles  map[string]string
	signInErr error
	createErr error
	updateErr error
	reloadErr error
	// entered and release, when set, hold SignIn until release is closed.
	entered chan struct{}
	release chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{profiles: map[string]string{}}
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProvider) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, _ string) (identity.Credential, error) {
	f.record("create")
	if f.createErr != nil {
		return identity.Credential{}, f.createErr
	}
	return identity.Credential{
		Identity: identity.Identity{UID: "uid-" + email, Email: email},
		IDToken:  "token-" + email,
	}, nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, _ string) (identity.Credential, error) {
	f.record("signin")
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return identity.Credential{}, ctx.Err()
		}
	}
	if f.signInErr != nil {
		return identity.Credential{}, f.signInErr
	}
	return identity.Credential{
		Identity: identity.Identity{UID: "uid-" + email, Email: email, DisplayName: "Ada"},
		IDToken:  "token-" + email,
	}, nil
}

func (f *fakeProvider) UpdateProfile(_ context.Context, cred identity.Credential, profile identity.Profile) (identity.Credential, error) {
	f.record("update:" + profile.DisplayName)
	if f.updateErr != nil {
		return identity.Credential{}, f.updateErr
	}
	f.mu.Lock()
	f.profiles[cred.Identity.UID] = profile.DisplayName
	f.mu.Unlock()
	return cred, nil
}

func (f *fakeProvider) Reload(_ context.Context, cred identity.Credential) (identity.Credential, error) {
	f.record("reload")
	if f.reloadErr != nil {
		return identity.Credential{}, f.reloadErr
	}
	f.mu.Lock()
	cred.Identity.DisplayName = f.profiles[cred.Identity.UID]
	f.mu.Unlock()
	return cred, nil
}

func (f *fakeProvider) SignOut(context.Context, identity.Credential) error {
	f.record("signout")
	return nil
}

// scriptedObserver replays states pushed by the test.
type scriptedObserver struct {
	mu      sync.Mutex
	initial session.State
	subs    map[int]func(session.State)
	next    int
}

func newScriptedObserver(initial session.State) *scriptedObserver {
	return &scriptedObserver{initial: initial, subs: map[int]func(session.State){}}
}

func (o *scriptedObserver) Subscribe(_ string, fn func(session.State)) func() {
	o.mu.Lock()
	o.next++
	id := o.next
	o.subs[id] = fn
	initial := o.initial
	o.mu.Unlock()
	fn(initial)
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *scriptedObserver) Current(string) session.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initial
}

func (o *scriptedObserver) emit(state session.State) {
	o.mu.Lock()
	subs := make([]func(session.State), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}

func (o *scriptedObserver) subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Replace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) replaced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type recordingSessions struct {
	mu    sync.Mutex
	creds []identity.Credential
}

func (s *recordingSessions) SignedIn(_ string, cred identity.Credential) session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = append(s.creds, cred)
	id := cred.Identity
	return session.State{Identity: &id}
}

func (s *recordingSessions) signedIn() []identity.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]identity.Credential(nil), s.creds...)
}
