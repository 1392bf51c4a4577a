// Package publicauth serves the login/signup screen.
//
// A Screen holds the form state of one request and delegates credential
// work to an identity.Provider. While mounted it watches the session
// observer and navigates to the landing page as soon as a signed-in
// identity appears.
package publicauth
