// Package navigation models screen transitions as history-replacing
// redirects.
package navigation

import (
	"net/http"
	"strings"
	"sync"

	"github.com/louisbranch/babylon-auth/internal/services/web/platform/httpx"
)

// Navigator replaces the current location. The previous screen is not kept
// in history.
type Navigator interface {
	Replace(path string)
}

// Deferred collects Replace calls made while a request is handled and
// turns the last one into a redirect response.
type Deferred struct {
	mu       sync.Mutex
	location string
	calls    int
}

var _ Navigator = (*Deferred)(nil)

// Replace records path as the pending location; later calls win.
func (d *Deferred) Replace(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = path
	d.calls++
}

// Location returns the pending location.
func (d *Deferred) Location() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location, d.location != ""
}

// Calls returns how many times Replace recorded a location.
func (d *Deferred) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Flush writes the pending redirect, if any, and reports whether it did.
func (d *Deferred) Flush(w http.ResponseWriter, r *http.Request) bool {
	location, ok := d.Location()
	if !ok {
		return false
	}
	httpx.WriteRedirect(w, r, location)
	return true
}
