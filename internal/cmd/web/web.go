// Package web parses web service flags and launches the auth flow server.
package web

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/option"

	entrypoint "github.com/louisbranch/babylon-auth/internal/platform/cmd"
	"github.com/louisbranch/babylon-auth/internal/platform/config"
	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/identity/identitytoolkit"
	"github.com/louisbranch/babylon-auth/internal/services/identity/local"
	"github.com/louisbranch/babylon-auth/internal/services/web"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/sessioncookie"
)

// Identity backends.
const (
	BackendLocal           = "local"
	BackendIdentityToolkit = "identitytoolkit"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr            string        `env:"BABYLON_WEB_HTTP_ADDR" envDefault:"localhost:8080"`
	IdentityBackend     string        `env:"BABYLON_IDENTITY_BACKEND" envDefault:"local"`
	ToolkitAPIKey       string        `env:"BABYLON_IDENTITY_TOOLKIT_API_KEY"`
	ToolkitEndpoint     string        `env:"BABYLON_IDENTITY_TOOLKIT_ENDPOINT"`
	LocalDBPath         string        `env:"BABYLON_LOCAL_IDENTITY_DB" envDefault:"data/identity.db"`
	LocalSecret         string        `env:"BABYLON_LOCAL_IDENTITY_SECRET"`
	CookieHashKey       string        `env:"BABYLON_WEB_COOKIE_HASH_KEY"`
	CookieBlockKey      string        `env:"BABYLON_WEB_COOKIE_BLOCK_KEY"`
	SessionTTL          time.Duration `env:"BABYLON_WEB_SESSION_TTL" envDefault:"24h"`
	TrustForwardedProto bool          `env:"BABYLON_WEB_TRUST_FORWARDED_PROTO"`
	Development         bool          `env:"BABYLON_WEB_DEV"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	bindFlags(fs, &cfg)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.IdentityBackend, "identity-backend", cfg.IdentityBackend, "Identity provider backend (local or identitytoolkit)")
	fs.StringVar(&cfg.ToolkitEndpoint, "identity-toolkit-endpoint", cfg.ToolkitEndpoint, "Identity Toolkit endpoint override, e.g. an emulator")
	fs.StringVar(&cfg.LocalDBPath, "local-identity-db", cfg.LocalDBPath, "Local identity SQLite path")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Idle browser session lifetime")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Honor X-Forwarded-Proto from a TLS proxy")
	fs.BoolVar(&cfg.Development, "dev", cfg.Development, "Relax transport security headers for local runs")
}

func (c Config) validate() error {
	switch strings.TrimSpace(c.IdentityBackend) {
	case BackendLocal:
		if strings.TrimSpace(c.LocalDBPath) == "" {
			return errors.New("local identity db path is required")
		}
	case BackendIdentityToolkit:
		if strings.TrimSpace(c.ToolkitAPIKey) == "" {
			return errors.New("BABYLON_IDENTITY_TOOLKIT_API_KEY is required for the identitytoolkit backend")
		}
	default:
		return fmt.Errorf("unknown identity backend %q", c.IdentityBackend)
	}
	return nil
}

// Run starts the web auth server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func serve(ctx context.Context, cfg Config) (err error) {
	hashKey, blockKey, err := cookieKeys(cfg)
	if err != nil {
		return err
	}
	provider, closeProvider, err := openProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open identity provider: %w", err)
	}
	defer func() {
		if closeErr := closeProvider.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("close identity provider: %w", closeErr)).ErrorOrNil()
		}
	}()

	server, err := web.NewServer(web.Config{
		HTTPAddr:            cfg.HTTPAddr,
		Provider:            provider,
		CookieHashKey:       hashKey,
		CookieBlockKey:      blockKey,
		SessionTTL:          cfg.SessionTTL,
		TrustForwardedProto: cfg.TrustForwardedProto,
		Development:         cfg.Development,
	})
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Printf("close web server: %v", closeErr)
		}
	}()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}

// cookieKeys decodes the configured cookie keys. A missing hash key is
// replaced by random keys, which invalidates sessions on every restart.
func cookieKeys(cfg Config) (hashKey, blockKey []byte, err error) {
	hashKey, err = config.DecodeKey(cfg.CookieHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cookie hash key: %w", err)
	}
	blockKey, err = config.DecodeKey(cfg.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cookie block key: %w", err)
	}
	if len(hashKey) == 0 {
		log.Printf("BABYLON_WEB_COOKIE_HASH_KEY not set; using ephemeral cookie keys")
		hashKey, blockKey = sessioncookie.RandomKeys()
	}
	return hashKey, blockKey, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func openProvider(ctx context.Context, cfg Config) (identity.Provider, io.Closer, error) {
	switch strings.TrimSpace(cfg.IdentityBackend) {
	case BackendIdentityToolkit:
		var opts []option.ClientOption
		if endpoint := strings.TrimSpace(cfg.ToolkitEndpoint); endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		client, err := identitytoolkit.New(ctx, cfg.ToolkitAPIKey, opts...)
		if err != nil {
			return nil, nil, err
		}
		return client, noopCloser{}, nil
	case BackendLocal:
		secret, err := config.DecodeKey(cfg.LocalSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("local identity secret: %w", err)
		}
		if len(secret) == 0 {
			log.Printf("BABYLON_LOCAL_IDENTITY_SECRET not set; issued ID tokens will not survive a restart")
			secret, _ = sessioncookie.RandomKeys()
		}
		provider, err := local.Open(ctx, cfg.LocalDBPath, local.Config{Secret: secret})
		if err != nil {
			return nil, nil, err
		}
		return provider, provider, nil
	default:
		return nil, nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
	}
}
