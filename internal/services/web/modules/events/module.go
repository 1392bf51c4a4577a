package events

import (
	"errors"
	"net/http"

	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
)

// Module provides the session events stream.
type Module struct {
	deps   module.Dependencies
	broker *Broker
}

// New returns the events module. The broker must be closed on shutdown.
func New(deps module.Dependencies, broker *Broker) Module {
	return Module{deps: deps, broker: broker}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "events" }

// Mount wires the events stream.
func (m Module) Mount() (module.Mount, error) {
	if err := m.deps.Validate(); err != nil {
		return module.Mount{}, err
	}
	if m.broker == nil {
		return module.Mount{}, errors.New("event broker is required")
	}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.EventsPattern, m.handleEvents)
	return module.Mount{Patterns: []string{routepath.EventsPattern}, Handler: mux}, nil
}

func (m Module) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := m.deps.Cookies.Read(r)
	if !ok {
		// 204 tells EventSource to stop reconnecting.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	m.deps.Sessions.Resolve(r.Context(), sessionID)
	m.broker.Serve(w, r, sessionID)
}
