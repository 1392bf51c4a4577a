// Package routepath stores canonical HTTP paths for web modules.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root    = "/"
	Home    = "/home"
	Logout  = "/logout"
	Events  = "/events"
	Health  = "/up"
	Metrics = "/metrics"
)

// Route patterns for http.ServeMux.
const (
	RootPattern   = "/{$}"
	HomePattern   = Home
	LogoutPattern = Logout
	EventsPattern = Events
)

// AuthMode returns the auth screen route with the given form mode selected.
func AuthMode(mode string) string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return Root
	}
	return Root + "?" + url.Values{"mode": {mode}}.Encode()
}
