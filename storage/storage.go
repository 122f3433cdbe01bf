package storage

import (
	"context"
	"errors"
	"time"

	"github.com/grantkit/grantkit/secrets"
)

// Sentinel errors returned by stores.
var (
	// ErrNotFound indicates the requested entity does not exist, or no entity
	// matched a by-value lookup
	ErrNotFound = errors.New("not found")

	// ErrRevoked indicates an atomic redemption found the entity already revoked
	ErrRevoked = errors.New("revoked")
)

// Client represents a registered OAuth client.
// Clients are created at registration time outside this engine and are
// read-only reference data here.
type Client struct {
	ID           string
	SecretDigest secrets.Digest
	RedirectURIs []string
	Scopes       []string // allowed scope identifiers
	CreatedAt    time.Time
}

// Scope is immutable reference data identifying a named permission unit.
// Scopes are compared by identifier equality only.
type Scope struct {
	ID          string
	Description string
}

// AuthorizationCode represents an issued authorization code.
// A code is consumed exactly once: it is revoked by a successful exchange and
// is permanently invalid after expiration or revocation, whichever first.
type AuthorizationCode struct {
	ID           string
	SecretDigest secrets.Digest
	ClientID     string
	UserID       string
	RedirectURI  string
	Scopes       []string
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
}

// AccessToken represents an issued access token.
// UserID is empty for tokens issued without a resource owner.
type AccessToken struct {
	ID           string
	SecretDigest secrets.Digest
	ClientID     string
	UserID       string
	Scopes       []string
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
}

// RefreshToken represents an issued refresh token.
// A zero ExpiresAt means the token never expires.
type RefreshToken struct {
	ID           string
	SecretDigest secrets.Digest
	ClientID     string
	UserID       string
	Scopes       []string
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
}

// ClientStore provides read access to registered clients.
// All methods accept context.Context for tracing and cancellation.
type ClientStore interface {
	// GetClient retrieves a client by ID; ErrNotFound if it does not exist
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// ScopeStore provides read access to scope reference data and the
// client → allowed-scope index.
type ScopeStore interface {
	// GetScope retrieves a scope by identifier; ErrNotFound if unknown
	GetScope(ctx context.Context, scopeID string) (*Scope, error)

	// AllowedForClient returns the scope identifiers the client may request
	AllowedForClient(ctx context.Context, clientID string) ([]string, error)
}

// AuthorizationCodeStore persists authorization codes.
type AuthorizationCodeStore interface {
	// GetAuthorizationCodeByValue resolves a plaintext code to its stored
	// entity. Only digests are stored, so the store re-verifies the digest
	// (or uses its own index); ErrNotFound if nothing matches.
	GetAuthorizationCodeByValue(ctx context.Context, plaintext string) (*AuthorizationCode, error)

	// SaveAuthorizationCode persists a freshly minted code
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// UpdateAuthorizationCode persists a mutation, typically the revoked flag
	UpdateAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// DeleteAuthorizationCode removes a code by ID (retention policy, not protocol)
	DeleteAuthorizationCode(ctx context.Context, id string) error
}

// AccessTokenStore persists access tokens.
type AccessTokenStore interface {
	// GetAccessTokenByValue resolves a plaintext token to its stored entity
	GetAccessTokenByValue(ctx context.Context, plaintext string) (*AccessToken, error)

	// SaveAccessToken persists a freshly minted token
	SaveAccessToken(ctx context.Context, token *AccessToken) error

	// DeleteAccessToken removes a token by ID
	DeleteAccessToken(ctx context.Context, id string) error
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	// GetRefreshTokenByValue resolves a plaintext token to its stored entity
	GetRefreshTokenByValue(ctx context.Context, plaintext string) (*RefreshToken, error)

	// SaveRefreshToken persists a freshly minted token
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// UpdateRefreshToken persists a mutation, typically the revoked flag
	UpdateRefreshToken(ctx context.Context, token *RefreshToken) error

	// DeleteRefreshToken removes a token by ID
	DeleteRefreshToken(ctx context.Context, id string) error
}

// AtomicCodeRedeemer atomically resolves a plaintext authorization code and
// marks it revoked in a single step, so that of two concurrent exchanges of
// the same code exactly one receives the entity.
//
// Returns the code (now revoked) on success, ErrRevoked if it was already
// revoked, or ErrNotFound. Expiry is NOT checked here; the caller applies its
// own expiration policy to the returned entity.
//
// This is optional — only implemented by stores that can make the
// check-and-mark sequence atomic. The engine falls back to
// GetAuthorizationCodeByValue + UpdateAuthorizationCode otherwise, in which
// case the at-most-one-redemption guarantee is the store's responsibility.
type AtomicCodeRedeemer interface {
	AtomicRedeemAuthorizationCode(ctx context.Context, plaintext string) (*AuthorizationCode, error)
}

// AtomicRefreshTokenConsumer atomically resolves a plaintext refresh token
// and marks it revoked, used during rotation so that two concurrent refresh
// requests cannot both rotate the same token generation.
//
// Same contract as AtomicCodeRedeemer: ErrRevoked for an already-consumed
// token, ErrNotFound otherwise, and no expiry check.
type AtomicRefreshTokenConsumer interface {
	AtomicConsumeRefreshToken(ctx context.Context, plaintext string) (*RefreshToken, error)
}
