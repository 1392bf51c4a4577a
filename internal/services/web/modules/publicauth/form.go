package publicauth

import (
	"strings"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

// Mode selects between signing in and creating an account.
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

// MinPasswordLength is the shortest password the form submits.
const MinPasswordLength = 6

// ParseMode returns the mode named by raw, defaulting to login.
func ParseMode(raw string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(raw))) == ModeSignup {
		return ModeSignup
	}
	return ModeLogin
}

// Form is the state of one auth screen instance.
type Form struct {
	Mode       Mode
	FullName   string
	Email      string
	Password   string
	Submitting bool
	Error      string
}

// CanSubmit reports whether form holds enough input to reach the provider.
func CanSubmit(form Form) bool {
	if form.Email == "" || form.Password == "" {
		return false
	}
	if identity.PasswordLength(form.Password) < MinPasswordLength {
		return false
	}
	return form.Mode != ModeSignup || strings.TrimSpace(form.FullName) != ""
}
