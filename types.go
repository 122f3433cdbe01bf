package grantkit

import (
	"net/url"
)

// AuthorizationRequest represents a request for an authorization code.
// UserID carries the authenticated principal; authenticating the user is the
// caller's responsibility (typically a login flow in front of this engine).
type AuthorizationRequest struct {
	// ClientID identifies the requesting client
	ClientID string

	// RedirectURI is the URI the code should be delivered to.
	// It must exactly match one of the client's registered redirect URIs.
	RedirectURI string

	// ResponseType is the OAuth response type (only "code" is supported)
	ResponseType string

	// Scope is the space-separated list of requested scope identifiers
	Scope string

	// State is the client's opaque state value, echoed back unchanged
	State string

	// UserID is the authenticated principal the code is issued for
	UserID string
}

// AuthorizationResponse carries a freshly issued authorization code.
// The code value is plaintext and exists only here; the stored entity holds a
// digest. Callers are expected to redirect the user agent to
// RedirectLocation().
type AuthorizationResponse struct {
	// Code is the one-time plaintext authorization code
	Code string

	// State is the client's state parameter, echoed for CSRF validation
	State string

	// RedirectURI is the validated redirect target
	RedirectURI string
}

// RedirectLocation builds the redirect URL with the code and state appended
// as query parameters.
func (r *AuthorizationResponse) RedirectLocation() (string, error) {
	u, err := url.Parse(r.RedirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", r.Code)
	if r.State != "" {
		q.Set("state", r.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenRequest represents an access token request for any supported grant.
// Fields are a union over the three grants; each grant reads only its own.
type TokenRequest struct {
	// GrantType selects the flow: "authorization_code", "password", or "refresh_token"
	GrantType string

	// ClientID and ClientSecret authenticate the client on every grant
	ClientID     string
	ClientSecret string

	// Code and RedirectURI are used by the authorization_code grant.
	// RedirectURI must match the one the code was issued for.
	Code        string
	RedirectURI string

	// Username is the resource owner's login name (password grant, informational).
	// UserID is the principal reference produced by the caller's external
	// credential validation; an empty UserID signals that validation failed.
	Username string
	UserID   string

	// RefreshToken is the presented refresh token value (refresh_token grant)
	RefreshToken string

	// Scope is the space-separated requested scope. Required semantics differ
	// per grant: password grants validate it against the client's allowed
	// scopes, refresh grants narrow it against the originally granted scopes.
	Scope string
}

// TokenResponse represents a successful OAuth 2.0 token response
type TokenResponse struct {
	// AccessToken is the one-time plaintext access token value
	AccessToken string `json:"access_token"`

	// TokenType is the type of token (always "bearer")
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// RefreshToken is the plaintext refresh token, present only when the
	// engine distributes refresh tokens or rotated the presented one
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the granted scope, space-joined
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse represents an OAuth error response on the wire
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`

	// ErrorURI points to error documentation
	ErrorURI string `json:"error_uri,omitempty"`
}
