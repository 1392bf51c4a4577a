// Package identity defines the contract between the web flow and the identity
// provider that owns accounts, passwords and tokens.
//
// The web service never stores passwords or validates credentials itself. It
// asks a Provider to create accounts, sign in, update profiles and sign out,
// and it maps the Code carried by a returned *Error to user-facing copy.
//
// Two backends live in subpackages: identitytoolkit talks to the managed
// Identity Toolkit REST API and local keeps accounts in SQLite for
// development and tests.
package identity
