// Package identitytoolkit implements identity.Provider on the Google Identity
// Toolkit (Firebase Auth) REST API.
package identitytoolkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	toolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/louisbranch/babylon-auth/internal/platform/otel"
	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

const tracerName = "github.com/louisbranch/babylon-auth/internal/services/identity/identitytoolkit"

// reasonCodes maps REST error reasons to provider codes.
var reasonCodes = map[string]string{
	"EMAIL_EXISTS":                identity.CodeEmailAlreadyInUse,
	"EMAIL_NOT_FOUND":             identity.CodeUserNotFound,
	"INVALID_PASSWORD":            identity.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   identity.CodeInvalidCredential,
	"INVALID_EMAIL":               identity.CodeInvalidEmail,
	"MISSING_EMAIL":               identity.CodeInvalidEmail,
	"WEAK_PASSWORD":               identity.CodeWeakPassword,
	"TOO_MANY_ATTEMPTS_TRY_LATER": identity.CodeTooManyRequests,
	"USER_DISABLED":               identity.CodeUserDisabled,
	"TOKEN_EXPIRED":               identity.CodeUserTokenExpired,
	"INVALID_ID_TOKEN":            identity.CodeInvalidUserToken,
	"USER_NOT_FOUND":              identity.CodeUserNotFound,
	"OPERATION_NOT_ALLOWED":       identity.CodeOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":     identity.CodeOperationNotAllowed,
}

// Client calls the relying-party endpoints of Identity Toolkit.
type Client struct {
	service *toolkit.Service
	tracer  trace.Tracer
}

var _ identity.Provider = (*Client)(nil)

// New builds a client authenticated with a web API key. Extra options can
// point the client at an emulator endpoint or inject an HTTP client.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("identity toolkit api key is required")
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := toolkit.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit service: %w", err)
	}
	return &Client{
		service: service,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// CreateAccount registers an email/password account.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (identity.Credential, error) {
	ctx, span := c.start(ctx, "CreateAccount")
	defer span.End()

	resp, err := c.service.Relyingparty.SignupNewUser(&toolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return identity.Credential{}, c.fail(span, "signup", err)
	}
	return c.credential(identity.Identity{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}, resp.IdToken, resp.RefreshToken), nil
}

// SignIn verifies an email/password pair.
func (c *Client) SignIn(ctx context.Context, email, password string) (identity.Credential, error) {
	ctx, span := c.start(ctx, "SignIn")
	defer span.End()

	resp, err := c.service.Relyingparty.VerifyPassword(&toolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return identity.Credential{}, c.fail(span, "verify password", err)
	}
	return c.credential(identity.Identity{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}, resp.IdToken, resp.RefreshToken), nil
}

// UpdateProfile sets the display name of the signed-in account.
func (c *Client) UpdateProfile(ctx context.Context, cred identity.Credential, profile identity.Profile) (identity.Credential, error) {
	ctx, span := c.start(ctx, "UpdateProfile")
	defer span.End()

	profile = profile.Normalize()
	resp, err := c.service.Relyingparty.SetAccountInfo(&toolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           cred.IDToken,
		DisplayName:       profile.DisplayName,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return identity.Credential{}, c.fail(span, "set account info", err)
	}

	next := cred
	next.Identity.DisplayName = profile.DisplayName
	if resp.Email != "" {
		next.Identity.Email = resp.Email
	}
	if resp.IdToken != "" {
		next = c.credential(next.Identity, resp.IdToken, firstNonEmpty(resp.RefreshToken, cred.RefreshToken))
	}
	return next, nil
}

// Reload fetches the current account record for cred.
func (c *Client) Reload(ctx context.Context, cred identity.Credential) (identity.Credential, error) {
	ctx, span := c.start(ctx, "Reload")
	defer span.End()

	resp, err := c.service.Relyingparty.GetAccountInfo(&toolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: cred.IDToken,
	}).Context(ctx).Do()
	if err != nil {
		return identity.Credential{}, c.fail(span, "get account info", err)
	}
	if len(resp.Users) == 0 || resp.Users[0] == nil {
		err := identity.NewError(identity.CodeUserNotFound, "account not found")
		span.SetStatus(codes.Error, err.Error())
		return identity.Credential{}, err
	}
	user := resp.Users[0]
	if user.Disabled {
		err := identity.NewError(identity.CodeUserDisabled, "account disabled")
		span.SetStatus(codes.Error, err.Error())
		return identity.Credential{}, err
	}

	next := cred
	next.Identity = identity.Identity{
		UID:         user.LocalId,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	return next, nil
}

// SignOut is local for this backend: the REST API has no session to end,
// and dropping the stored credential is enough.
func (c *Client) SignOut(context.Context, identity.Credential) error {
	return nil
}

func (c *Client) credential(id identity.Identity, idToken, refreshToken string) identity.Credential {
	cred := identity.Credential{
		Identity:     id,
		IDToken:      idToken,
		RefreshToken: refreshToken,
	}
	if expiresAt, err := identity.TokenExpiry(idToken); err == nil {
		cred.ExpiresAt = expiresAt
	}
	return cred
}

func (c *Client) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "identitytoolkit."+op, trace.WithAttributes(
		attribute.String("identity.backend", "identitytoolkit"),
	))
}

func (c *Client) fail(span trace.Span, op string, err error) error {
	translated := translate(op, err)
	if code, ok := identity.CodeOf(translated); ok {
		span.SetAttributes(attribute.String("identity.code", code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, translated.Error())
	return translated
}

// translate converts REST failures into provider errors. Transport failures
// stay plain errors so callers treat them as unexpected.
func translate(op string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("identity toolkit %s: %w", op, err)
	}
	reason := Reason(apiErr.Message)
	code, ok := reasonCodes[reason]
	if !ok {
		code = identity.CodeInternalError
	}
	return &identity.Error{Code: code, Message: apiErr.Message, Err: err}
}

// Reason extracts the error reason from messages like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func Reason(message string) string {
	reason, _, _ := strings.Cut(message, ":")
	return strings.TrimSpace(reason)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
