// Package sessioncookie stores the browser session ID in a signed, and
// optionally encrypted, cookie.
package sessioncookie

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/louisbranch/babylon-auth/internal/services/web/platform/requestmeta"
)

// Name is the canonical web session cookie name.
const Name = "web_session"

// Codec reads and writes the session cookie.
type Codec struct {
	secure *securecookie.SecureCookie
	policy requestmeta.SchemePolicy
	maxAge time.Duration
}

// New builds a codec. hashKey signs the cookie and is required; blockKey,
// when set, must be 16, 24 or 32 bytes and encrypts it.
func New(hashKey, blockKey []byte, maxAge time.Duration, policy requestmeta.SchemePolicy) (*Codec, error) {
	if len(hashKey) == 0 {
		return nil, errors.New("session cookie hash key is required")
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session cookie block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	secure := securecookie.New(hashKey, blockKey)
	if maxAge > 0 {
		secure.MaxAge(int(maxAge / time.Second))
	}
	return &Codec{secure: secure, policy: policy, maxAge: maxAge}, nil
}

// RandomKeys generates a fresh hash and block key pair. Sessions signed with
// them do not survive a restart.
func RandomKeys() (hashKey, blockKey []byte) {
	return securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32)
}

// Read returns the session ID when a valid cookie is present.
func (c *Codec) Read(r *http.Request) (string, bool) {
	if c == nil || r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	var sessionID string
	if err := c.secure.Decode(Name, cookie.Value, &sessionID); err != nil {
		return "", false
	}
	sessionID = strings.TrimSpace(sessionID)
	return sessionID, sessionID != ""
}

// Write sets the session cookie to sessionID.
func (c *Codec) Write(w http.ResponseWriter, r *http.Request, sessionID string) error {
	if c == nil || w == nil {
		return nil
	}
	encoded, err := c.secure.Encode(Name, strings.TrimSpace(sessionID))
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	cookie := c.cookie(r)
	cookie.Value = encoded
	if c.maxAge > 0 {
		cookie.MaxAge = int(c.maxAge / time.Second)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter, r *http.Request) {
	if c == nil || w == nil {
		return
	}
	cookie := c.cookie(r)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

// Ensure returns the current session ID, minting and writing a new one when
// the request carries none.
func (c *Codec) Ensure(w http.ResponseWriter, r *http.Request, mint func() string) (string, error) {
	if sessionID, ok := c.Read(r); ok {
		return sessionID, nil
	}
	if mint == nil {
		return "", errors.New("session id generator is required")
	}
	sessionID := strings.TrimSpace(mint())
	if sessionID == "" {
		return "", errors.New("session id generator returned blank id")
	}
	if err := c.Write(w, r, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (c *Codec) cookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.policy.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	}
}
