// Package web serves the browser-facing sign-in flow.
//
// The root handler composes three modules: publicauth (the login/signup
// form), home (the signed-in landing page and sign-out) and events (a
// server-sent-events stream of session changes). All of them read one
// session.Manager, which is the only writer to the session observer.
package web
