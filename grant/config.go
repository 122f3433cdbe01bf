package grant

import (
	"time"

	"github.com/grantkit/grantkit"
	"github.com/grantkit/grantkit/security"
)

// Config holds grant engine policy configuration
type Config struct {
	// AuthorizationCodeLifetime is how long authorization codes are valid.
	// Default: 5 minutes.
	AuthorizationCodeLifetime time.Duration

	// AccessTokenLifetime is how long access tokens are valid.
	// Default: 1 hour.
	AccessTokenLifetime time.Duration

	// RefreshTokenLifetime is how long refresh tokens are valid.
	// Zero means minted refresh tokens never expire (the default).
	RefreshTokenLifetime time.Duration

	// DistributeRefreshTokens enables minting a refresh token alongside the
	// access token on authorization_code and password grants.
	// Default: false.
	DistributeRefreshTokens bool

	// RotateRefreshTokens revokes the presented refresh token on every
	// refresh_token grant and mints a replacement returned in the response.
	// When false the presented token stays valid and the response carries no
	// refresh_token.
	// Default: false.
	RotateRefreshTokens bool

	// DeleteRevokedTokens physically deletes codes and refresh tokens on
	// revocation instead of flagging them. This is a storage retention
	// policy, not a protocol requirement.
	// Default: false.
	DeleteRevokedTokens bool

	// HashIterations is the PBKDF2 iteration count for minted secrets.
	// Default: 40000.
	HashIterations int

	// SaltLength is the salt length in bytes for minted secrets.
	// Default: 16.
	SaltLength int

	// ClockSkewGracePeriod is the grace period applied to every expiry check.
	// Default: 5 seconds.
	ClockSkewGracePeriod time.Duration
}

// applyDefaults fills in zero-valued policy fields.
// RefreshTokenLifetime is left alone; its zero value is meaningful.
func applyDefaults(config *Config) *Config {
	if config.AuthorizationCodeLifetime == 0 {
		config.AuthorizationCodeLifetime = grantkit.DefaultAuthorizationCodeLifetime
	}
	if config.AccessTokenLifetime == 0 {
		config.AccessTokenLifetime = grantkit.DefaultAccessTokenLifetime
	}
	if config.HashIterations == 0 {
		config.HashIterations = grantkit.DefaultHashIterations
	}
	if config.SaltLength == 0 {
		config.SaltLength = grantkit.DefaultSaltLength
	}
	if config.ClockSkewGracePeriod == 0 {
		config.ClockSkewGracePeriod = security.DefaultClockSkewGracePeriod
	}
	return config
}
