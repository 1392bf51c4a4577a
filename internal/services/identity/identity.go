package identity

import (
	"context"
	"strings"
	"time"
	"unicode/utf16"
)

// Identity is the authenticated user as reported by the provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Credential is the provider session returned on sign-in or sign-up.
type Credential struct {
	Identity     Identity
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the ID token lifetime has elapsed at now.
// A zero ExpiresAt never expires.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Profile holds the mutable profile fields.
type Profile struct {
	DisplayName string
}

// Normalize trims the profile fields.
func (p Profile) Normalize() Profile {
	return Profile{DisplayName: strings.TrimSpace(p.DisplayName)}
}

// Provider is an identity provider.
type Provider interface {
	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (Credential, error)
	// SignIn authenticates an existing account.
	SignIn(ctx context.Context, email, password string) (Credential, error)
	// UpdateProfile changes profile fields of the signed-in account.
	UpdateProfile(ctx context.Context, cred Credential, profile Profile) (Credential, error)
	// Reload refreshes the identity attached to cred from the provider.
	Reload(ctx context.Context, cred Credential) (Credential, error)
	// SignOut ends the provider session for cred.
	SignOut(ctx context.Context, cred Credential) error
}

// PasswordLength counts password characters the way browsers and the managed
// provider do, in UTF-16 code units, so "ééé" is 3 and an emoji is 2.
func PasswordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}
