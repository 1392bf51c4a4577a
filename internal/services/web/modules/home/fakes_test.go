package home

import (
	"context"
	"sync"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

type fakeSessions struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeSessions) SignOut(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID)
	return f.err
}

func (f *fakeSessions) signOuts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
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

// fakeProvider backs a real session manager in handler tests.
type fakeProvider struct {
	identity.Provider
	mu         sync.Mutex
	signOutErr error
	signOuts   int
}

func (f *fakeProvider) SignOut(context.Context, identity.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.signOutErr
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}
