package grant

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/grantkit/grantkit/instrumentation"
	"github.com/grantkit/grantkit/secrets"
	"github.com/grantkit/grantkit/security"
	"github.com/grantkit/grantkit/storage"
	"github.com/grantkit/grantkit/token"
)

// safeTruncate safely truncates a string to maxLen characters without
// panicking. Used when logging prefixes of presented secret values.
func safeTruncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// secretLogLength is the number of characters of a presented secret value to
// include in debug logs. Enough for correlation, useless for replay.
const secretLogLength = 8

// Engine implements the OAuth 2.0 grant flows on top of the storage
// contracts. It is stateless across calls; everything it needs is injected
// at construction.
type Engine struct {
	hasher        *secrets.Hasher
	clients       storage.ClientStore
	scopes        storage.ScopeStore
	codes         storage.AuthorizationCodeStore
	accessTokens  storage.AccessTokenStore
	refreshTokens storage.RefreshTokenStore

	codeFactory    *token.AuthorizationCodeFactory
	accessFactory  *token.AccessTokenFactory
	refreshFactory *token.RefreshTokenFactory

	Auditor                  *security.Auditor
	SecurityEventRateLimiter *security.RateLimiter // rate limiter for security event logging
	Logger                   *slog.Logger
	Config                   *Config

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
}

// New creates a new grant engine
func New(
	hasher *secrets.Hasher,
	clients storage.ClientStore,
	scopes storage.ScopeStore,
	codes storage.AuthorizationCodeStore,
	accessTokens storage.AccessTokenStore,
	refreshTokens storage.RefreshTokenStore,
	config *Config,
	logger *slog.Logger,
) (*Engine, error) {
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client store is required")
	}
	if scopes == nil {
		return nil, fmt.Errorf("scope store is required")
	}
	if codes == nil {
		return nil, fmt.Errorf("authorization code store is required")
	}
	if accessTokens == nil {
		return nil, fmt.Errorf("access token store is required")
	}
	if refreshTokens == nil {
		return nil, fmt.Errorf("refresh token store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	config = applyDefaults(config)

	return &Engine{
		hasher:        hasher,
		clients:       clients,
		scopes:        scopes,
		codes:         codes,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,

		codeFactory:    token.NewAuthorizationCodeFactory(hasher, config.SaltLength, config.HashIterations, config.AuthorizationCodeLifetime),
		accessFactory:  token.NewAccessTokenFactory(hasher, config.SaltLength, config.HashIterations, config.AccessTokenLifetime),
		refreshFactory: token.NewRefreshTokenFactory(hasher, config.SaltLength, config.HashIterations, config.RefreshTokenLifetime),

		Config: config,
		Logger: logger,
	}, nil
}

// SetAuditor sets the security auditor
func (e *Engine) SetAuditor(aud *security.Auditor) {
	e.Auditor = aud
}

// SetSecurityEventRateLimiter sets the rate limiter for security event logging.
// This prevents log flooding from repeated invalid grant attempts.
func (e *Engine) SetSecurityEventRateLimiter(rl *security.RateLimiter) {
	e.SecurityEventRateLimiter = rl
}

// SetInstrumentation sets OpenTelemetry instrumentation for the engine
func (e *Engine) SetInstrumentation(inst *instrumentation.Instrumentation) {
	e.instrumentation = inst
	if inst != nil {
		e.tracer = inst.Tracer("grant")
	}
}

// allowSecurityEvent reports whether a security event for the given identity
// key should be logged, applying the configured rate limit when present.
func (e *Engine) allowSecurityEvent(key string) bool {
	return e.SecurityEventRateLimiter == nil || e.SecurityEventRateLimiter.Allow(key)
}

// metrics returns the metric instruments, or nil when instrumentation is unset
func (e *Engine) metrics() *instrumentation.Metrics {
	if e.instrumentation == nil {
		return nil
	}
	return e.instrumentation.Metrics()
}

// startSpan starts a grant flow span when a tracer is configured
func (e *Engine) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.tracer.Start(ctx, name, opts...)
}
