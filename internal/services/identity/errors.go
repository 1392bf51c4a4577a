package identity

import (
	"errors"
	"strings"
)

// Provider error codes. Providers may return codes outside this set.
const (
	CodeInvalidEmail        = "auth/invalid-email"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeUserDisabled        = "auth/user-disabled"
	CodeUserTokenExpired    = "auth/user-token-expired"
	CodeInvalidUserToken    = "auth/invalid-user-token"
	CodeInternalError       = "auth/internal-error"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
)

// Error is a failure reported by the identity provider.
type Error struct {
	Code    string
	Message string
	Err     error
}

// NewError builds a provider error with code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := strings.TrimSpace(e.Message)
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case msg == "":
		msg = "identity provider error"
	}
	if e.Code == "" {
		return msg
	}
	return e.Code + ": " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CodeOf returns the provider code carried by err.
func CodeOf(err error) (string, bool) {
	var providerErr *Error
	if !errors.As(err, &providerErr) || providerErr == nil {
		return "", false
	}
	return providerErr.Code, true
}

// IsCode reports whether err carries the given provider code.
func IsCode(err error, code string) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
