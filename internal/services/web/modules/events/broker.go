// Package events streams session state changes to open pages as
// server-sent events.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"

	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

// Message is the payload of each event.
type Message struct {
	SignedIn bool `json:"signedIn"`
	Loading  bool `json:"loading"`
}

// Broker relays observer updates to SSE connections. Each connection gets
// its own stream, so a client receives the state current at connect time
// followed by every later change.
type Broker struct {
	server   *sse.Server
	observer session.Subscriber

	mu     sync.Mutex
	closed bool
	conns  map[string]func()
}

// NewBroker builds a broker reading from observer.
func NewBroker(observer session.Subscriber) (*Broker, error) {
	if observer == nil {
		return nil, errors.New("session observer is required")
	}
	server := sse.New()
	server.AutoStream = false
	// Streams are per connection; replay hands the client whatever was
	// published before it attached.
	server.AutoReplay = true
	return &Broker{
		server:   server,
		observer: observer,
		conns:    map[string]func(){},
	}, nil
}

// StreamPrefix returns the stream name prefix for sessionID. The raw
// session ID never appears in stream names.
func StreamPrefix(sessionID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sessionID)))
	return hex.EncodeToString(sum[:])
}

// Serve streams session updates for sessionID until the client goes away
// or the broker closes.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	streamID, err := b.open(sessionID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer b.release(streamID)

	req := r.Clone(r.Context())
	// Event IDs restart on every stream.
	req.Header.Del("Last-Event-ID")
	query := req.URL.Query()
	query.Set("stream", streamID)
	req.URL.RawQuery = query.Encode()
	b.server.ServeHTTP(w, req)
}

func (b *Broker) open(sessionID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errors.New("event broker is closed")
	}
	streamID := StreamPrefix(sessionID) + "-" + uuid.NewString()
	b.server.CreateStream(streamID)
	unsubscribe := b.observer.Subscribe(sessionID, func(state session.State) {
		b.publish(streamID, state)
	})
	b.conns[streamID] = unsubscribe
	return streamID, nil
}

func (b *Broker) release(streamID string) {
	b.mu.Lock()
	unsubscribe, ok := b.conns[streamID]
	delete(b.conns, streamID)
	closed := b.closed
	b.mu.Unlock()
	if !ok {
		return
	}
	unsubscribe()
	if !closed {
		b.server.RemoveStream(streamID)
	}
}

func (b *Broker) publish(streamID string, state session.State) {
	data, err := json.Marshal(Message{SignedIn: state.SignedIn(), Loading: state.Loading})
	if err != nil {
		log.Printf("session event encode failed: stream=%s err=%v", streamID, err)
		return
	}
	b.server.Publish(streamID, &sse.Event{Data: data})
}

// Connections returns how many clients are attached.
func (b *Broker) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Close drops every stream, ending open connections.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conns := b.conns
	b.conns = map[string]func(){}
	b.mu.Unlock()

	for _, unsubscribe := range conns {
		unsubscribe()
	}
	b.server.Close()
	return nil
}
