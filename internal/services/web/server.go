package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/unrolled/secure"

	"github.com/louisbranch/babylon-auth/internal/platform/timeouts"
	"github.com/louisbranch/babylon-auth/internal/services/identity"
	"github.com/louisbranch/babylon-auth/internal/services/web/app"
	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
	"github.com/louisbranch/babylon-auth/internal/services/web/modules/events"
	"github.com/louisbranch/babylon-auth/internal/services/web/modules/home"
	"github.com/louisbranch/babylon-auth/internal/services/web/modules/publicauth"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/httpx"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/metrics"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/babylon-auth/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/babylon-auth/internal/services/web/routepath"
	"github.com/louisbranch/babylon-auth/internal/services/web/session"
)

const defaultSessionTTL = 24 * time.Hour

// contentSecurityPolicy allows only same-origin resources plus the inline
// script carrying the per-request nonce.
const contentSecurityPolicy = "default-src 'self'; script-src 'self' $NONCE; " +
	"style-src 'self' 'unsafe-inline'; connect-src 'self'; frame-ancestors 'none'; " +
	"base-uri 'self'; form-action 'self'"

// Config defines the inputs for the web server.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string
	// Provider is the identity provider behind the auth form.
	Provider identity.Provider
	// CookieHashKey signs the session cookie. Required.
	CookieHashKey []byte
	// CookieBlockKey encrypts the session cookie when set.
	CookieBlockKey []byte
	// SessionTTL is how long an idle browser session is kept.
	SessionTTL time.Duration
	// TrustForwardedProto honors X-Forwarded-Proto from a TLS-terminating proxy.
	TrustForwardedProto bool
	// Development relaxes transport security headers for local runs.
	Development bool
}

// Server hosts the web auth flow.
type Server struct {
	httpAddr   string
	handler    http.Handler
	httpServer *http.Server
	sessions   *session.Manager
	broker     *events.Broker
}

// NewServer wires the session manager, modules and middleware.
func NewServer(config Config) (*Server, error) {
	if config.Provider == nil {
		return nil, errors.New("identity provider is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	ttl := config.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	observer := session.NewObserver()
	sessions, err := session.NewManager(config.Provider, observer, session.ManagerConfig{
		TTL:   ttl,
		Sweep: timeouts.SessionSweep,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	policy := requestmeta.SchemePolicy{TrustForwardedProto: config.TrustForwardedProto}
	cookies, err := sessioncookie.New(config.CookieHashKey, config.CookieBlockKey, ttl, policy)
	if err != nil {
		return nil, fmt.Errorf("session cookie: %w", err)
	}
	stats := metrics.New(sessions.Sessions)
	broker, err := events.NewBroker(observer)
	if err != nil {
		return nil, fmt.Errorf("event broker: %w", err)
	}

	deps := module.Dependencies{
		Sessions:    sessions,
		Cookies:     cookies,
		Metrics:     stats,
		RequestMeta: policy,
	}
	mux, err := app.Compose(
		publicauth.New(deps, config.Provider),
		home.New(deps),
		events.New(deps, broker),
	)
	if err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("compose modules: %w", err)
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Health, handleHealth)
	mux.Handle(http.MethodGet+" "+routepath.Metrics, stats.Handler())

	handler := httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		securityHeaders(config),
	)

	return &Server{
		httpAddr: httpAddr,
		handler:  handler,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		sessions: sessions,
		broker:   broker,
	}, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, open event streams are closed first so shutdown does not
// wait on them, then in-flight requests are drained within a bounded window.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("web auth listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if err := s.broker.Close(); err != nil {
			log.Printf("close event broker: %v", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close stops event streams and the HTTP listener.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var result *multierror.Error
	if err := s.broker.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close event broker: %w", err))
	}
	if err := s.httpServer.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close http server: %w", err))
	}
	return result.ErrorOrNil()
}

func securityHeaders(config Config) httpx.Middleware {
	options := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
		IsDevelopment:         config.Development,
	}
	if !config.Development {
		options.STSSeconds = 31536000
	}
	if config.TrustForwardedProto {
		options.SSLProxyHeaders = map[string]string{"X-Forwarded-Proto": "https"}
	}
	return secure.New(options).Handler
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
