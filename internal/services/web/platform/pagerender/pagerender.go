// Package pagerender centralizes page rendering behavior.
package pagerender

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/unrolled/secure"

	apperrors "github.com/louisbranch/babylon-auth/internal/services/web/platform/errors"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/httpx"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/babylon-auth/internal/services/web/templates"
)

// Layout returns the shell values for r: the CSP nonce issued by the
// security middleware and the session events URL.
func Layout(r *http.Request) webtemplates.Layout {
	layout := webtemplates.Layout{EventsURL: routepath.Events}
	if r != nil {
		layout.Nonce = secure.CSPNonce(r.Context())
	}
	return layout
}

// Write renders page into a buffer and writes it with statusCode. Nothing
// is written when rendering fails.
func Write(w http.ResponseWriter, r *http.Request, statusCode int, page templ.Component) error {
	if w == nil {
		return nil
	}
	if page == nil {
		return apperrors.E(apperrors.KindUnknown, "page component is required")
	}
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	var buf bytes.Buffer
	if err := page.Render(httpx.RequestContext(r), &buf); err != nil {
		return apperrors.Wrap(apperrors.KindUnknown, "render page", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
	return nil
}
