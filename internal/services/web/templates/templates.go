// Package templates renders the web pages as templ components backed by
// embedded html/template files.
package templates

import (
	"embed"
	"html/template"

	"github.com/a-h/templ"

	"github.com/louisbranch/babylon-auth/internal/services/web/platform/i18n"
)

//go:embed *.gohtml
var files embed.FS

var (
	authTemplate = template.Must(template.ParseFS(files, "layout.gohtml", "auth.gohtml"))
	homeTemplate = template.Must(template.ParseFS(files, "layout.gohtml", "home.gohtml"))
)

const (
	screenAuth = "auth"
	screenHome = "home"
)

// Layout carries the shell values shared by every page.
type Layout struct {
	Lang      string
	Title     string
	Nonce     string
	EventsURL string
	Screen    string
}

// AuthPage is the login/signup form view.
type AuthPage struct {
	Layout
	Copy        i18n.AuthCopy
	Mode        string
	LoginURL    string
	SignupURL   string
	FullName    string
	Email       string
	Error       string
	SubmitLabel string
	MinPassword int
	CanSubmit   bool
	Submitting  bool
}

// HomePage is the signed-in landing view.
type HomePage struct {
	Layout
	Copy       i18n.HomeCopy
	LoggingOut bool
}

// Auth renders the auth screen.
func Auth(page AuthPage) templ.Component {
	page.Screen = screenAuth
	if page.Lang == "" {
		page.Lang = page.Copy.Lang
	}
	if page.Title == "" {
		page.Title = page.Copy.Title
	}
	return templ.FromGoHTML(authTemplate, page)
}

// Home renders the landing screen.
func Home(page HomePage) templ.Component {
	page.Screen = screenHome
	if page.Lang == "" {
		page.Lang = page.Copy.Lang
	}
	if page.Title == "" {
		page.Title = page.Copy.Title
	}
	return templ.FromGoHTML(homeTemplate, page)
}
