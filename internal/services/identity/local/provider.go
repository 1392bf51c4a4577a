// Package local implements identity.Provider over a SQLite account table.
//
// It issues HS256 ID tokens and rate limits attempts per email so the web
// flow can run, and be tested, without a managed identity service. Signing
// out bumps the account's token generation, which revokes every token issued
// before it.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/louisbranch/babylon-auth/internal/platform/otel"
	"github.com/louisbranch/babylon-auth/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/identity/local/migrations"
)

const (
	tracerName = "github.com/louisbranch/babylon-auth/internal/services/identity/local"

	// MinPasswordLength matches the managed provider's weak-password rule.
	MinPasswordLength = 6

	defaultIssuer       = "babylon-local"
	defaultTokenTTL     = time.Hour
	defaultAttemptBurst = 5
	defaultLimiterSize  = 4096
)

var defaultAttemptRate = rate.Every(12 * time.Second)

// Config controls the local provider.
type Config struct {
	// Secret signs ID tokens. Required.
	Secret []byte
	// Issuer is the iss and aud claim of issued tokens.
	Issuer string
	// TokenTTL is the ID token lifetime.
	TokenTTL time.Duration
	// AttemptRate and AttemptBurst shape the per-email token bucket.
	AttemptRate  rate.Limit
	AttemptBurst int
	// LimiterSize bounds how many emails keep a bucket.
	LimiterSize int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Issuer) == "" {
		c.Issuer = defaultIssuer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.AttemptRate <= 0 {
		c.AttemptRate = defaultAttemptRate
	}
	if c.AttemptBurst <= 0 {
		c.AttemptBurst = defaultAttemptBurst
	}
	if c.LimiterSize <= 0 {
		c.LimiterSize = defaultLimiterSize
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Provider is the SQLite-backed identity provider.
type Provider struct {
	store   *store
	tokens  tokenIssuer
	limiter *attemptLimiter
	cost    int
	now     func() time.Time
	tracer  trace.Tracer
}

var _ identity.Provider = (*Provider)(nil)

// Open opens the account database at path, applying migrations.
func Open(ctx context.Context, path string, cfg Config) (*Provider, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open local identity store: %w", err)
	}
	provider, err := New(sqlDB, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return provider, nil
}

// New builds a provider over an already migrated database.
func New(sqlDB *sql.DB, cfg Config) (*Provider, error) {
	if sqlDB == nil {
		return nil, errors.New("sql db is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	cfg = cfg.withDefaults()

	limiter, err := newAttemptLimiter(cfg.LimiterSize, cfg.AttemptRate, cfg.AttemptBurst, cfg.Now)
	if err != nil {
		return nil, err
	}
	return &Provider{
		store: &store{sqlDB: sqlDB},
		tokens: tokenIssuer{
			secret: cfg.Secret,
			issuer: cfg.Issuer,
			ttl:    cfg.TokenTTL,
			now:    cfg.Now,
		},
		limiter: limiter,
		cost:    cfg.BcryptCost,
		now:     cfg.Now,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Close releases the account database.
func (p *Provider) Close() error {
	if p == nil || p.store == nil || p.store.sqlDB == nil {
		return nil
	}
	return p.store.sqlDB.Close()
}

// CreateAccount registers an email/password account.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (cred identity.Credential, err error) {
	ctx, span := p.start(ctx, "CreateAccount")
	defer func() { p.end(span, err) }()

	normalized, ok := normalizeEmail(email)
	if !ok {
		return identity.Credential{}, identity.NewError(identity.CodeInvalidEmail, "invalid email")
	}
	if !p.limiter.allow(normalized) {
		return identity.Credential{}, identity.NewError(identity.CodeTooManyRequests, "too many attempts")
	}
	if identity.PasswordLength(password) < MinPasswordLength {
		return identity.Credential{}, identity.NewError(identity.CodeWeakPassword, fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return identity.Credential{}, fmt.Errorf("hash password: %w", err)
	}
	now := p.now().UTC()
	acct := account{
		ID:           uuid.NewString(),
		Email:        normalized,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.insert(ctx, acct); err != nil {
		if errors.Is(err, errEmailTaken) {
			return identity.Credential{}, identity.NewError(identity.CodeEmailAlreadyInUse, "email already in use")
		}
		return identity.Credential{}, err
	}
	return p.credential(acct)
}

// SignIn verifies an email/password pair.
func (p *Provider) SignIn(ctx context.Context, email, password string) (cred identity.Credential, err error) {
	ctx, span := p.start(ctx, "SignIn")
	defer func() { p.end(span, err) }()

	normalized, ok := normalizeEmail(email)
	if !ok {
		return identity.Credential{}, identity.NewError(identity.CodeInvalidEmail, "invalid email")
	}
	if !p.limiter.allow(normalized) {
		return identity.Credential{}, identity.NewError(identity.CodeTooManyRequests, "too many attempts")
	}

	acct, err := p.store.byEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, errAccountNotFound) {
			return identity.Credential{}, identity.NewError(identity.CodeUserNotFound, "no account for email")
		}
		return identity.Credential{}, err
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return identity.Credential{}, identity.NewError(identity.CodeWrongPassword, "password mismatch")
	}
	if acct.Disabled {
		return identity.Credential{}, identity.NewError(identity.CodeUserDisabled, "account disabled")
	}
	return p.credential(acct)
}

// UpdateProfile stores the display name and reissues the ID token.
func (p *Provider) UpdateProfile(ctx context.Context, cred identity.Credential, profile identity.Profile) (next identity.Credential, err error) {
	ctx, span := p.start(ctx, "UpdateProfile")
	defer func() { p.end(span, err) }()

	acct, err := p.verify(ctx, cred.IDToken)
	if err != nil {
		return identity.Credential{}, err
	}
	profile = profile.Normalize()
	if err := p.store.setDisplayName(ctx, acct.ID, profile.DisplayName, p.now()); err != nil {
		return identity.Credential{}, err
	}
	acct.DisplayName = profile.DisplayName
	return p.credential(acct)
}

// Reload returns cred with the stored identity.
func (p *Provider) Reload(ctx context.Context, cred identity.Credential) (next identity.Credential, err error) {
	ctx, span := p.start(ctx, "Reload")
	defer func() { p.end(span, err) }()

	acct, err := p.verify(ctx, cred.IDToken)
	if err != nil {
		return identity.Credential{}, err
	}
	next = cred
	next.Identity = toIdentity(acct)
	return next, nil
}

// SignOut revokes every token issued to the account so far.
func (p *Provider) SignOut(ctx context.Context, cred identity.Credential) (err error) {
	ctx, span := p.start(ctx, "SignOut")
	defer func() { p.end(span, err) }()

	acct, err := p.verify(ctx, cred.IDToken)
	if err != nil {
		return err
	}
	return p.store.bumpGeneration(ctx, acct.ID, p.now())
}

// setDisabled enables or disables sign-in for the account with email.
func (p *Provider) setDisabled(ctx context.Context, email string, disabled bool) error {
	normalized, ok := normalizeEmail(email)
	if !ok {
		return identity.NewError(identity.CodeInvalidEmail, "invalid email")
	}
	acct, err := p.store.byEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, errAccountNotFound) {
			return identity.NewError(identity.CodeUserNotFound, "no account for email")
		}
		return err
	}
	return p.store.setDisabled(ctx, acct.ID, disabled, p.now())
}

func (p *Provider) verify(ctx context.Context, idToken string) (account, error) {
	claims, err := p.tokens.parse(idToken)
	if err != nil {
		return account{}, err
	}
	acct, err := p.store.byID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, errAccountNotFound) {
			return account{}, identity.NewError(identity.CodeUserNotFound, "account deleted")
		}
		return account{}, err
	}
	if acct.Disabled {
		return account{}, identity.NewError(identity.CodeUserDisabled, "account disabled")
	}
	if acct.TokenGeneration != claims.Generation {
		return account{}, identity.NewError(identity.CodeUserTokenExpired, "id token revoked")
	}
	return acct, nil
}

func (p *Provider) credential(acct account) (identity.Credential, error) {
	idToken, expiresAt, err := p.tokens.issue(acct)
	if err != nil {
		return identity.Credential{}, err
	}
	return identity.Credential{
		Identity:  toIdentity(acct),
		IDToken:   idToken,
		ExpiresAt: expiresAt,
	}, nil
}

func (p *Provider) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "local."+op, trace.WithAttributes(
		attribute.String("identity.backend", "local"),
	))
}

func (p *Provider) end(span trace.Span, err error) {
	if err != nil {
		if code, ok := identity.CodeOf(err); ok {
			span.SetAttributes(attribute.String("identity.code", code))
		}
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func toIdentity(acct account) identity.Identity {
	return identity.Identity{
		UID:         acct.ID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
	}
}

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
