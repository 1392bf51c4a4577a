package publicauth

import (
	"errors"
	"net/http"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
)

// Module provides the login/signup routes.
type Module struct {
	deps     module.Dependencies
	provider identity.Provider
}

// New returns the auth screen module.
func New(deps module.Dependencies, provider identity.Provider) Module {
	return Module{deps: deps, provider: provider}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string {
	return "publicauth"
}

// Mount wires the auth screen under the root path.
func (m Module) Mount() (module.Mount, error) {
	if err := m.deps.Validate(); err != nil {
		return module.Mount{}, err
	}
	if m.provider == nil {
		return module.Mount{}, errors.New("identity provider is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.deps, m.provider))
	return module.Mount{Patterns: []string{routepath.RootPattern}, Handler: mux}, nil
}
