// Package session tracks which identity, if any, each browser session is
// signed in as and notifies subscribers when that changes.
package session

import (
	"strings"
	"sync"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

// State is the session as seen by screens. A nil Identity means no one is
// signed in; Loading is true until the first resolution completes.
type State struct {
	Identity *identity.Identity
	Loading  bool
}

// SignedIn reports a resolved session with an identity.
func (s State) SignedIn() bool {
	return !s.Loading && s.Identity != nil
}

// SignedOut reports a resolved session without an identity.
func (s State) SignedOut() bool {
	return !s.Loading && s.Identity == nil
}

// Equal compares states by value.
func (s State) Equal(other State) bool {
	if s.Loading != other.Loading {
		return false
	}
	if s.Identity == nil || other.Identity == nil {
		return s.Identity == nil && other.Identity == nil
	}
	return *s.Identity == *other.Identity
}

func (s State) clone() State {
	if s.Identity == nil {
		return s
	}
	id := *s.Identity
	return State{Identity: &id, Loading: s.Loading}
}

// Subscriber is the read side of the observer used by screens.
type Subscriber interface {
	Subscribe(sessionID string, fn func(State)) (unsubscribe func())
	Current(sessionID string) State
}

// Observer fans session state out to subscribers. Callbacks run on the
// publishing goroutine and must not publish themselves.
type Observer struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	nextID   uint64
}

type sessionEntry struct {
	state State
	known bool
	seq   uint64
	subs  map[uint64]*subscription
}

type subscription struct {
	mu   sync.Mutex
	fn   func(State)
	last uint64
	done bool
}

var _ Subscriber = (*Observer)(nil)

// NewObserver returns an empty observer.
func NewObserver() *Observer {
	return &Observer{sessions: map[string]*sessionEntry{}}
}

// Current returns the latest state for sessionID.
func (o *Observer) Current(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.sessions[normalizeID(sessionID)]
	if !ok || !entry.known {
		return State{Loading: true}
	}
	return entry.state.clone()
}

// Subscribe delivers the current state to fn immediately and then every
// later change, in publish order.
func (o *Observer) Subscribe(sessionID string, fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	sessionID = normalizeID(sessionID)

	o.mu.Lock()
	entry := o.entryLocked(sessionID)
	o.nextID++
	id := o.nextID
	sub := &subscription{fn: fn}
	entry.subs[id] = sub
	state := State{Loading: true}
	if entry.known {
		state = entry.state.clone()
	}
	seq := entry.seq
	o.mu.Unlock()

	sub.deliver(seq, state, true)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			o.mu.Lock()
			defer o.mu.Unlock()
			entry, ok := o.sessions[sessionID]
			if !ok {
				return
			}
			delete(entry.subs, id)
			o.pruneLocked(sessionID, entry)
		})
	}
}

// Publish records state for sessionID and notifies subscribers when it
// differs from the previous state.
func (o *Observer) Publish(sessionID string, state State) {
	sessionID = normalizeID(sessionID)
	state = state.clone()

	o.mu.Lock()
	entry := o.entryLocked(sessionID)
	if entry.known && entry.state.Equal(state) {
		o.mu.Unlock()
		return
	}
	entry.state = state
	entry.known = true
	entry.seq++
	seq := entry.seq
	subs := make([]*subscription, 0, len(entry.subs))
	for _, sub := range entry.subs {
		subs = append(subs, sub)
	}
	o.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, state.clone(), false)
	}
}

// Forget publishes a signed-out state and drops the session once nobody
// is subscribed.
func (o *Observer) Forget(sessionID string) {
	sessionID = normalizeID(sessionID)
	o.Publish(sessionID, State{})

	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.sessions[sessionID]; ok {
		o.pruneLocked(sessionID, entry)
	}
}

// Subscribers returns how many callbacks watch sessionID.
func (o *Observer) Subscribers(sessionID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.sessions[normalizeID(sessionID)]
	if !ok {
		return 0
	}
	return len(entry.subs)
}

func (o *Observer) entryLocked(sessionID string) *sessionEntry {
	entry, ok := o.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{subs: map[uint64]*subscription{}}
		o.sessions[sessionID] = entry
	}
	return entry
}

// pruneLocked drops entries that carry no identity and have no subscribers.
func (o *Observer) pruneLocked(sessionID string, entry *sessionEntry) {
	if len(entry.subs) == 0 && entry.state.Identity == nil {
		delete(o.sessions, sessionID)
	}
}

// deliver runs fn unless a newer state was already delivered. The initial
// delivery accepts an equal sequence so a subscriber sees the state it
// subscribed to.
func (s *subscription) deliver(seq uint64, state State, initial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	if !initial && seq <= s.last {
		return
	}
	if initial && seq < s.last {
		return
	}
	s.last = seq
	s.fn(state)
}

func (s *subscription) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

func normalizeID(sessionID string) string {
	return strings.TrimSpace(sessionID)
}
