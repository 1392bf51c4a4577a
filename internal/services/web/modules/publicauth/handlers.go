package publicauth

import (
	"log"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
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
	deps     module.Dependencies
	provider identity.Provider
	flights  *singleflight.Group
}

func newHandlers(deps module.Dependencies, provider identity.Provider) handlers {
	return handlers{deps: deps, provider: provider, flights: &singleflight.Group{}}
}

func (h handlers) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	form := Form{Mode: ParseMode(r.URL.Query().Get("mode"))}
	screen, nav, ok := h.mountScreen(w, r, form)
	if !ok {
		return
	}
	defer screen.Unmount()
	if nav.Flush(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, screen.Form())
}

func (h handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.deps.RequestMeta.SameOrigin(r) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.KindInvalidInput, "invalid form body", err))
		return
	}
	form := Form{
		Mode:     ParseMode(r.PostForm.Get("mode")),
		FullName: r.PostForm.Get("full_name"),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	screen, nav, ok := h.mountScreen(w, r, form)
	if !ok {
		return
	}
	defer screen.Unmount()
	// Already signed in, from this tab or another one.
	if nav.Flush(w, r) {
		return
	}

	outcome := screen.Submit(r.Context())
	h.deps.Metrics.Attempt(string(form.Mode), string(outcome))
	if nav.Flush(w, r) {
		return
	}
	h.render(w, r, http.StatusUnprocessableEntity, screen.Form())
}

// mountScreen resolves the browser session and mounts a screen for it. It
// writes the error response and reports false when that fails.
func (h handlers) mountScreen(w http.ResponseWriter, r *http.Request, form Form) (*Screen, *navigation.Deferred, bool) {
	sessionID, err := h.deps.SessionID(w, r)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindUnknown, "session cookie", err))
		return nil, nil, false
	}
	h.deps.Sessions.Resolve(r.Context(), sessionID)

	nav := &navigation.Deferred{}
	screen, err := NewScreen(ScreenConfig{
		SessionID: sessionID,
		Provider:  h.provider,
		Sessions:  h.deps.Sessions,
		Observer:  h.deps.Sessions.Observer(),
		Navigator: nav,
		Flights:   h.flights,
		Form:      form,
	})
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindUnavailable, "auth screen", err))
		return nil, nil, false
	}
	screen.Mount()
	return screen, nav, true
}

func (h handlers) render(w http.ResponseWriter, r *http.Request, status int, form Form) {
	if err := pagerender.Write(w, r, status, webtemplates.Auth(authPage(r, form))); err != nil {
		h.writeError(w, r, err)
	}
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("auth page error: request_id=%s path=%s err=%v", httpx.RequestIDOf(r), r.URL.Path, err)
	httpx.WriteError(w, err)
}

// authPage builds the view of form. The password is never echoed, so the
// rendered submit button always starts disabled.
func authPage(r *http.Request, form Form) webtemplates.AuthPage {
	copy := webi18n.Auth(webi18n.ResolveTag(r))
	label := copy.SubmitLogin
	if form.Mode == ModeSignup {
		label = copy.SubmitSignup
	}
	return webtemplates.AuthPage{
		Layout:      pagerender.Layout(r),
		Copy:        copy,
		Mode:        string(form.Mode),
		LoginURL:    routepath.AuthMode(string(ModeLogin)),
		SignupURL:   routepath.AuthMode(string(ModeSignup)),
		FullName:    form.FullName,
		Email:       form.Email,
		Error:       form.Error,
		SubmitLabel: label,
		MinPassword: MinPasswordLength,
		Submitting:  form.Submitting,
	}
}
