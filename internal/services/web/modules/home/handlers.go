package home

import (
	"log"
	"net/http"

	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
	apperrors "github.com/louisbranch/babylon-auth/internal/services/web/platform/errors"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/babylon-auth/internal/services/web/platform/i18n"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/navigation"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/pagerender"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/babylon-auth/internal/services/web/templates"
)

type handlers struct {
	deps module.Dependencies
}

func newHandlers(deps module.Dependencies) handlers {
	return handlers{deps: deps}
}

func (h handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.deps.SessionID(w, r)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindUnknown, "session cookie", err))
		return
	}
	screen, nav, ok := h.mountScreen(w, r, sessionID)
	if !ok {
		return
	}
	defer screen.Unmount()
	if nav.Flush(w, r) {
		return
	}

	page := webtemplates.HomePage{
		Layout:     pagerender.Layout(r),
		Copy:       webi18n.Home(webi18n.ResolveTag(r), screen.DisplayName()),
		LoggingOut: screen.LoggingOut(),
	}
	if err := pagerender.Write(w, r, http.StatusOK, webtemplates.Home(page)); err != nil {
		h.writeError(w, r, err)
	}
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, hasSession := h.deps.Cookies.Read(r)
	if !hasSession {
		httpx.WriteRedirect(w, r, routepath.Root)
		return
	}
	if !h.deps.RequestMeta.SameOrigin(r) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	screen, nav, ok := h.mountScreen(w, r, sessionID)
	if !ok {
		return
	}
	defer screen.Unmount()

	outcome := screen.Logout(r.Context())
	h.deps.Metrics.SignOut(string(outcome))
	if !nav.Flush(w, r) {
		httpx.WriteRedirect(w, r, routepath.Root)
	}
}

// mountScreen resolves sessionID and mounts a landing screen for it. It
// writes the error response and reports false when that fails.
func (h handlers) mountScreen(w http.ResponseWriter, r *http.Request, sessionID string) (*Screen, *navigation.Deferred, bool) {
	h.deps.Sessions.Resolve(r.Context(), sessionID)
	nav := &navigation.Deferred{}
	screen, err := NewScreen(ScreenConfig{
		SessionID: sessionID,
		Sessions:  h.deps.Sessions,
		Observer:  h.deps.Sessions.Observer(),
		Navigator: nav,
	})
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindUnavailable, "landing screen", err))
		return nil, nil, false
	}
	screen.Mount()
	return screen, nav, true
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("home page error: request_id=%s path=%s err=%v", httpx.RequestIDOf(r), r.URL.Path, err)
	httpx.WriteError(w, err)
}
