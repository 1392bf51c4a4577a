// Package i18n resolves the request language and builds localized page copy.
package i18n

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/babylon-auth/internal/platform/i18n/catalog"
)

var matcher = language.NewMatcher(catalog.Default().Tags())

// AuthCopy holds the copy of the auth screen.
type AuthCopy struct {
	Lang         string
	Title        string
	TabLogin     string
	TabSignup    string
	FullName     string
	Email        string
	Password     string
	PasswordHint string
	SubmitLogin  string
	SubmitSignup string
	Pending      string
}

// HomeCopy holds the copy of the landing screen.
type HomeCopy struct {
	Lang          string
	Title         string
	Greeting      string
	Logout        string
	LogoutPending string
}

// ResolveTag picks the page language from the lang query parameter, then
// Accept-Language, defaulting to en-US.
func ResolveTag(r *http.Request) language.Tag {
	if r == nil {
		return normalizeTag(language.Und)
	}
	var preferred []language.Tag
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			preferred = append(preferred, tag)
		}
	}
	if accepted, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil {
		preferred = append(preferred, accepted...)
	}
	if len(preferred) == 0 {
		return normalizeTag(language.Und)
	}
	tag, _, _ := matcher.Match(preferred...)
	return normalizeTag(tag)
}

// Auth returns auth screen copy for tag.
func Auth(tag language.Tag) AuthCopy {
	tag = normalizeTag(tag)
	loc := message.NewPrinter(tag)
	return AuthCopy{
		Lang:         tag.String(),
		Title:        localizeWithFallback(loc, "auth.title", "Babylon Auth Task"),
		TabLogin:     localizeWithFallback(loc, "auth.tab.login", "Log in"),
		TabSignup:    localizeWithFallback(loc, "auth.tab.signup", "Sign up"),
		FullName:     localizeWithFallback(loc, "auth.field.full_name", "Full Name"),
		Email:        localizeWithFallback(loc, "auth.field.email", "Email"),
		Password:     localizeWithFallback(loc, "auth.field.password", "Password"),
		PasswordHint: localizeWithFallback(loc, "auth.field.password_hint", "At least 6 characters"),
		SubmitLogin:  localizeWithFallback(loc, "auth.submit.login", "Log in"),
		SubmitSignup: localizeWithFallback(loc, "auth.submit.signup", "Create account"),
		Pending:      localizeWithFallback(loc, "auth.submit.pending", "Please wait..."),
	}
}

// Home returns landing screen copy for tag, greeting displayName or a
// fallback when it is empty. The name is shown exactly as the provider
// stores it.
func Home(tag language.Tag, displayName string) HomeCopy {
	tag = normalizeTag(tag)
	loc := message.NewPrinter(tag)
	name := displayName
	if name == "" {
		name = localizeWithFallback(loc, "home.greeting_fallback", "there")
	}
	return HomeCopy{
		Lang:          tag.String(),
		Title:         localizeWithFallback(loc, "auth.title", "Babylon Auth Task"),
		Greeting:      localizeWithFallback(loc, "home.greeting", "Hey, %s! You’re successfully logged in.", name),
		Logout:        localizeWithFallback(loc, "home.logout", "Logout"),
		LogoutPending: localizeWithFallback(loc, "home.logout_pending", "Logging out..."),
	}
}

func normalizeTag(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	portuguese, _ := language.Portuguese.Base()
	if base == portuguese {
		return language.MustParse("pt-BR")
	}
	return language.MustParse("en-US")
}

func localizeWithFallback(loc *message.Printer, key string, fallback string, args ...any) string {
	if loc != nil {
		value := strings.TrimSpace(loc.Sprintf(key, args...))
		if value != "" && value != key && !strings.HasPrefix(value, key+"%!") {
			return value
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(fallback, args...)
	}
	return fallback
}
