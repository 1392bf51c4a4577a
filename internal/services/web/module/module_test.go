package module

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

func TestValidateRequiresSessionsAndCookies(t *testing.T) {
	t.Parallel()

	if err := (Dependencies{}).Validate(); err == nil {
		t.Fatal("expected error for empty dependencies")
	}
	codec, err := sessioncookie.New([]byte("0123456789abcdef0123456789abcdef"), nil, 0, requestmeta.SchemePolicy{})
	if err != nil {
		t.Fatalf("sessioncookie.New() error = %v", err)
	}
	if err := (Dependencies{Cookies: codec}).Validate(); err == nil {
		t.Fatal("expected error without session manager")
	}
}

func TestSessionIDMintsOnceAndReadsBack(t *testing.T) {
	t.Parallel()

	codec, err := sessioncookie.New([]byte("0123456789abcdef0123456789abcdef"), nil, 0, requestmeta.SchemePolicy{})
	if err != nil {
		t.Fatalf("sessioncookie.New() error = %v", err)
	}
	manager, err := session.NewManager(noopProvider{}, session.NewObserver(), session.ManagerConfig{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	deps := Dependencies{Sessions: manager, Cookies: codec}
	if err := deps.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	rr := httptest.NewRecorder()
	first, err := deps.SessionID(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || first == "" {
		t.Fatalf("SessionID() = %q, %v", first, err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	second, err := deps.SessionID(rr, req)
	if err != nil {
		t.Fatalf("SessionID() error = %v", err)
	}
	if second != first {
		t.Fatalf("SessionID() = %q, want %q", second, first)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("existing session should not rewrite the cookie")
	}
}

type noopProvider struct {
	identity.Provider
}
