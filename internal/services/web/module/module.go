// Package module defines the feature contract used by web composition.
package module

import (
	"errors"
	"net/http"

	"github.com/louisbranch/babylon-auth/internal/services/web/platform/metrics"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

// Mount describes the route patterns a module serves and the handler
// behind them.
type Mount struct {
	Patterns []string
	Handler  http.Handler
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}

// Dependencies carries the shared services screen modules are built from.
type Dependencies struct {
	Sessions    *session.Manager
	Cookies     *sessioncookie.Codec
	Metrics     *metrics.Metrics
	RequestMeta requestmeta.SchemePolicy
}

// Validate reports missing required dependencies.
func (d Dependencies) Validate() error {
	if d.Sessions == nil {
		return errors.New("session manager is required")
	}
	if d.Cookies == nil {
		return errors.New("session cookie codec is required")
	}
	return nil
}

// SessionID returns the browser session for r, minting and setting the
// cookie when the request carries none.
func (d Dependencies) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	return d.Cookies.Ensure(w, r, d.Sessions.NewSessionID)
}
