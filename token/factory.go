package token

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/grantkit/grantkit/secrets"
	"github.com/grantkit/grantkit/storage"
)

// generateValue generates a cryptographically secure random token value.
// oauth2.GenerateVerifier produces a URL-safe, base64-encoded string from
// crypto/rand; never substitute a general-purpose PRNG here.
func generateValue() string {
	return oauth2.GenerateVerifier()
}

// CreatedAuthorizationCode pairs a persistable authorization code with its
// one-time plaintext value
type CreatedAuthorizationCode struct {
	Code      *storage.AuthorizationCode
	Plaintext string
}

// CreatedAccessToken pairs a persistable access token with its one-time
// plaintext value
type CreatedAccessToken struct {
	Token     *storage.AccessToken
	Plaintext string
}

// CreatedRefreshToken pairs a persistable refresh token with its one-time
// plaintext value
type CreatedRefreshToken struct {
	Token     *storage.RefreshToken
	Plaintext string
}

// AuthorizationCodeFactory mints authorization codes
type AuthorizationCodeFactory struct {
	hasher     *secrets.Hasher
	saltLength int
	iterations int
	lifetime   time.Duration
	now        func() time.Time
}

// NewAuthorizationCodeFactory creates a factory minting codes that expire
// after lifetime
func NewAuthorizationCodeFactory(hasher *secrets.Hasher, saltLength, iterations int, lifetime time.Duration) *AuthorizationCodeFactory {
	return &AuthorizationCodeFactory{
		hasher:     hasher,
		saltLength: saltLength,
		iterations: iterations,
		lifetime:   lifetime,
		now:        time.Now,
	}
}

// Create mints a new authorization code for the given client, user, scopes,
// and redirect URI. The returned plaintext is the only copy that will ever
// exist; persisting the entity is the caller's responsibility.
func (f *AuthorizationCodeFactory) Create(client *storage.Client, userID string, scopes []string, redirectURI string) (*CreatedAuthorizationCode, error) {
	plaintext := generateValue()
	digest, err := f.hasher.Derive([]byte(plaintext), f.saltLength, f.iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive code digest: %w", err)
	}

	now := f.now()
	return &CreatedAuthorizationCode{
		Code: &storage.AuthorizationCode{
			ID:           uuid.NewString(),
			SecretDigest: digest,
			ClientID:     client.ID,
			UserID:       userID,
			RedirectURI:  redirectURI,
			Scopes:       append([]string(nil), scopes...),
			ExpiresAt:    now.Add(f.lifetime),
			CreatedAt:    now,
		},
		Plaintext: plaintext,
	}, nil
}

// AccessTokenFactory mints access tokens
type AccessTokenFactory struct {
	hasher     *secrets.Hasher
	saltLength int
	iterations int
	lifetime   time.Duration
	now        func() time.Time
}

// NewAccessTokenFactory creates a factory minting access tokens that expire
// after lifetime
func NewAccessTokenFactory(hasher *secrets.Hasher, saltLength, iterations int, lifetime time.Duration) *AccessTokenFactory {
	return &AccessTokenFactory{
		hasher:     hasher,
		saltLength: saltLength,
		iterations: iterations,
		lifetime:   lifetime,
		now:        time.Now,
	}
}

// Create mints a new access token. userID may be empty for tokens issued
// without a resource owner.
func (f *AccessTokenFactory) Create(client *storage.Client, userID string, scopes []string) (*CreatedAccessToken, error) {
	plaintext := generateValue()
	digest, err := f.hasher.Derive([]byte(plaintext), f.saltLength, f.iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token digest: %w", err)
	}

	now := f.now()
	return &CreatedAccessToken{
		Token: &storage.AccessToken{
			ID:           uuid.NewString(),
			SecretDigest: digest,
			ClientID:     client.ID,
			UserID:       userID,
			Scopes:       append([]string(nil), scopes...),
			ExpiresAt:    now.Add(f.lifetime),
			CreatedAt:    now,
		},
		Plaintext: plaintext,
	}, nil
}

// RefreshTokenFactory mints refresh tokens
type RefreshTokenFactory struct {
	hasher     *secrets.Hasher
	saltLength int
	iterations int
	lifetime   time.Duration
	now        func() time.Time
}

// NewRefreshTokenFactory creates a factory minting refresh tokens.
// A zero lifetime means minted tokens never expire.
func NewRefreshTokenFactory(hasher *secrets.Hasher, saltLength, iterations int, lifetime time.Duration) *RefreshTokenFactory {
	return &RefreshTokenFactory{
		hasher:     hasher,
		saltLength: saltLength,
		iterations: iterations,
		lifetime:   lifetime,
		now:        time.Now,
	}
}

// Create mints a new refresh token bound to the given client, user, and scopes
func (f *RefreshTokenFactory) Create(client *storage.Client, userID string, scopes []string) (*CreatedRefreshToken, error) {
	plaintext := generateValue()
	digest, err := f.hasher.Derive([]byte(plaintext), f.saltLength, f.iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token digest: %w", err)
	}

	now := f.now()
	entity := &storage.RefreshToken{
		ID:           uuid.NewString(),
		SecretDigest: digest,
		ClientID:     client.ID,
		UserID:       userID,
		Scopes:       append([]string(nil), scopes...),
		CreatedAt:    now,
	}
	if f.lifetime > 0 {
		entity.ExpiresAt = now.Add(f.lifetime)
	}

	return &CreatedRefreshToken{
		Token:     entity,
		Plaintext: plaintext,
	}, nil
}
