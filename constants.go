package grantkit

import "time"

// Grant type constants (RFC 6749 Section 4)
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
)

// ResponseTypeCode is the only supported authorization response type
const ResponseTypeCode = "code"

// TokenTypeBearer is the token type issued for all access tokens
const TokenTypeBearer = "bearer"

// Policy defaults for token lifetimes and secret derivation.
// Refresh tokens carry no lifetime default; the zero value of
// grant.Config.RefreshTokenLifetime means minted refresh tokens never expire.
const (
	DefaultAuthorizationCodeLifetime = 5 * time.Minute
	DefaultAccessTokenLifetime       = time.Hour

	DefaultHashIterations = 40000
	DefaultSaltLength     = 16
)
