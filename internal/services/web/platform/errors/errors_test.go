package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "invalid input", err: E(KindInvalidInput, "bad"), want: http.StatusBadRequest},
		{name: "unauthorized", err: E(KindUnauthorized, "unauthorized"), want: http.StatusUnauthorized},
		{name: "forbidden", err: E(KindForbidden, "forbidden"), want: http.StatusForbidden},
		{name: "not found", err: E(KindNotFound, "missing"), want: http.StatusNotFound},
		{name: "conflict", err: E(KindConflict, "conflict"), want: http.StatusConflict},
		{name: "unavailable", err: E(KindUnavailable, "unavailable"), want: http.StatusServiceUnavailable},
		{name: "unknown", err: E(KindUnknown, "unknown"), want: http.StatusInternalServerError},
		{name: "plain", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "wrapped", err: fmt.Errorf("render: %w", E(KindForbidden, "nope")), want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestErrorStringFallbacks(t *testing.T) {
	t.Parallel()

	if got := (Error{Kind: KindForbidden}).Error(); got != string(KindForbidden) {
		t.Fatalf("Error() = %q, want %q", got, KindForbidden)
	}
	if got := (Error{Kind: KindUnavailable, Err: errors.New("store down")}).Error(); got != "store down" {
		t.Fatalf("Error() = %q, want cause message", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("template missing")
	err := Wrap(KindUnknown, "render failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find cause")
	}
	if KindOf(err) != KindUnknown {
		t.Fatalf("KindOf() = %q", KindOf(err))
	}
	if KindOf(cause) != KindUnknown {
		t.Fatal("plain errors should be unknown")
	}
}

func TestLocalizationKey(t *testing.T) {
	t.Parallel()

	if got := LocalizationKey(EK(KindForbidden, " error.forbidden ", "forbidden")); got != "error.forbidden" {
		t.Fatalf("LocalizationKey() = %q", got)
	}
	if got := LocalizationKey(errors.New("plain")); got != "" {
		t.Fatalf("LocalizationKey(plain) = %q", got)
	}
	if got := LocalizationKey(nil); got != "" {
		t.Fatalf("LocalizationKey(nil) = %q", got)
	}
}
