package local

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/babylon-auth/internal/services/identity"
)

// idTokenClaims are the claims of locally issued ID tokens. Generation
// must match the account's token_generation for the token to be accepted.
type idTokenClaims struct {
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func (t tokenIssuer) issue(acct account) (string, time.Time, error) {
	issuedAt := t.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(t.ttl)
	claims := idTokenClaims{
		Email:      acct.Email,
		Name:       acct.DisplayName,
		Generation: acct.TokenGeneration,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   acct.ID,
			Audience:  jwt.ClaimStrings{t.issuer},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign id token: %w", err)
	}
	return signed, expiresAt, nil
}

// parse validates signature, issuer and expiry, returning provider errors.
func (t tokenIssuer) parse(idToken string) (idTokenClaims, error) {
	claims := idTokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return idTokenClaims{}, &identity.Error{Code: identity.CodeUserTokenExpired, Message: "id token expired", Err: err}
	default:
		return idTokenClaims{}, &identity.Error{Code: identity.CodeInvalidUserToken, Message: "id token rejected", Err: err}
	}
}
