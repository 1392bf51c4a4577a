package local

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestProvider(t *testing.T, clock *fakeClock) *Provider {
	t.Helper()

	cfg := Config{
		Secret:     []byte("local-test-secret"),
		BcryptCost: bcrypt.MinCost,
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	provider, err := Open(context.Background(), filepath.Join(t.TempDir(), "identity.db"), cfg)
	if err != nil {
		t.Fatalf("open provider: %v", err)
	}
	t.Cleanup(func() {
		if err := provider.Close(); err != nil {
			t.Errorf("close provider: %v", err)
		}
	})
	return provider
}

func requireCode(t *testing.T, err error, want string) {
	t.Helper()

	code, ok := identity.CodeOf(err)
	if !ok {
		t.Fatalf("expected provider error %s, got %v", want, err)
	}
	if code != want {
		t.Fatalf("code = %q, want %q", code, want)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), Config{}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := New(nil, Config{Secret: []byte("s")}); err == nil {
		t.Fatal("expected missing db error")
	}
}

func TestSignupProfileReloadFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)

	cred, err := provider.CreateAccount(ctx, "  Ada@Example.com ", "lovelace")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if cred.Identity.UID == "" || cred.Identity.Email != "ada@example.com" {
		t.Fatalf("identity = %+v", cred.Identity)
	}
	if cred.Identity.DisplayName != "" {
		t.Fatalf("new account should have no display name, got %q", cred.Identity.DisplayName)
	}
	if cred.ExpiresAt.IsZero() {
		t.Fatal("expected token expiry")
	}

	updated, err := provider.UpdateProfile(ctx, cred, identity.Profile{DisplayName: " Ada Lovelace "})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Identity.DisplayName != "Ada Lovelace" {
		t.Fatalf("display name = %q", updated.Identity.DisplayName)
	}

	reloaded, err := provider.Reload(ctx, cred)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reloaded.Identity.DisplayName != "Ada Lovelace" {
		t.Fatalf("reloaded display name = %q", reloaded.Identity.DisplayName)
	}
	if reloaded.IDToken != cred.IDToken {
		t.Fatal("reload should keep the id token")
	}

	expiry, err := identity.TokenExpiry(cred.IDToken)
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !expiry.Equal(cred.ExpiresAt) {
		t.Fatalf("token exp = %v, credential exp = %v", expiry, cred.ExpiresAt)
	}
}

func TestCreateAccountErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)
	if _, err := provider.CreateAccount(ctx, "taken@example.com", "secret1"); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{name: "invalid email", email: "not-an-email", password: "secret1", want: identity.CodeInvalidEmail},
		{name: "blank email", email: "  ", password: "secret1", want: identity.CodeInvalidEmail},
		{name: "weak password", email: "weak@example.com", password: "12345", want: identity.CodeWeakPassword},
		{name: "weak accented password", email: "accent@example.com", password: "ééé", want: identity.CodeWeakPassword},
		{name: "duplicate", email: "TAKEN@example.com", password: "secret1", want: identity.CodeEmailAlreadyInUse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := provider.CreateAccount(ctx, tc.email, tc.password)
			requireCode(t, err, tc.want)
		})
	}
}

func TestSignInErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)
	if _, err := provider.CreateAccount(ctx, "grace@example.com", "hopper1"); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if _, err := provider.SignIn(ctx, "grace@example.com", "hopper1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	_, err := provider.SignIn(ctx, "grace@example.com", "wrong-password")
	requireCode(t, err, identity.CodeWrongPassword)
	_, err = provider.SignIn(ctx, "nobody@example.com", "hopper1")
	requireCode(t, err, identity.CodeUserNotFound)
	_, err = provider.SignIn(ctx, "grace", "hopper1")
	requireCode(t, err, identity.CodeInvalidEmail)
}

func TestDisabledAccountCannotSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)
	cred, err := provider.CreateAccount(ctx, "off@example.com", "secret1")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := provider.setDisabled(ctx, "off@example.com", true); err != nil {
		t.Fatalf("setDisabled: %v", err)
	}

	_, err = provider.SignIn(ctx, "off@example.com", "secret1")
	requireCode(t, err, identity.CodeUserDisabled)
	_, err = provider.Reload(ctx, cred)
	requireCode(t, err, identity.CodeUserDisabled)

	err = provider.setDisabled(ctx, "missing@example.com", true)
	requireCode(t, err, identity.CodeUserNotFound)
}

func TestSignInRateLimitedPerEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	provider := openTestProvider(t, clock)
	if _, err := provider.CreateAccount(ctx, "busy@example.com", "secret1"); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	// Sign-up spent one attempt of the burst.
	for i := 0; i < defaultAttemptBurst-1; i++ {
		_, err := provider.SignIn(ctx, "busy@example.com", "wrong-pass")
		requireCode(t, err, identity.CodeWrongPassword)
	}
	_, err := provider.SignIn(ctx, "busy@example.com", "secret1")
	requireCode(t, err, identity.CodeTooManyRequests)

	if _, err := provider.SignIn(ctx, "other@example.com", "secret1"); identity.IsCode(err, identity.CodeTooManyRequests) {
		t.Fatal("limit should be per email")
	}

	clock.Advance(time.Minute)
	if _, err := provider.SignIn(ctx, "busy@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn after refill: %v", err)
	}
}

func TestSignOutRevokesIssuedTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)
	cred, err := provider.CreateAccount(ctx, "out@example.com", "secret1")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if err := provider.SignOut(ctx, cred); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	_, err = provider.Reload(ctx, cred)
	requireCode(t, err, identity.CodeUserTokenExpired)

	fresh, err := provider.SignIn(ctx, "out@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn after sign-out: %v", err)
	}
	if _, err := provider.Reload(ctx, fresh); err != nil {
		t.Fatalf("Reload fresh credential: %v", err)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	provider := openTestProvider(t, clock)
	cred, err := provider.CreateAccount(ctx, "late@example.com", "secret1")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	clock.Advance(defaultTokenTTL + time.Second)
	_, err = provider.Reload(ctx, cred)
	requireCode(t, err, identity.CodeUserTokenExpired)
}

func TestForgedTokenIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := openTestProvider(t, nil)
	_, err := provider.Reload(ctx, identity.Credential{IDToken: "forged.token.value"})
	requireCode(t, err, identity.CodeInvalidUserToken)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "a@example.com", want: "a@example.com", ok: true},
		{raw: " A@Example.COM ", want: "a@example.com", ok: true},
		{raw: "Ada <a@example.com>", ok: false},
		{raw: "plain", ok: false},
		{raw: "", ok: false},
	}
	for _, tc := range tests {
		got, ok := normalizeEmail(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("normalizeEmail(%q) = %q, %t; want %q, %t", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
