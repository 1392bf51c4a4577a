package home

import (
	"net/http"

	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
)

// Module provides the landing and sign-out routes.
type Module struct {
	deps module.Dependencies
}

// New returns the landing screen module.
func New(deps module.Dependencies) Module {
	return Module{deps: deps}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "home" }

// Mount wires the landing and sign-out handlers.
func (m Module) Mount() (module.Mount, error) {
	if err := m.deps.Validate(); err != nil {
		return module.Mount{}, err
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.deps))
	return module.Mount{
		Patterns: []string{routepath.HomePattern, routepath.LogoutPattern},
		Handler:  mux,
	}, nil
}
