// Package grantkit defines the wire-level request, response, and error model
// for an OAuth 2.0 token issuance and verification engine.
//
// The root package is intentionally transport-free: it describes what a grant
// request looks like and what comes back, including the RFC 6749 error
// taxonomy with its HTTP status mapping, so that a boundary adapter can
// translate results without re-deriving protocol policy. The protocol logic
// itself lives in the grant package, backed by the storage contracts and the
// secrets and token packages:
//
//   - grant: the grant orchestrator (authorization code requests plus the
//     authorization_code, password, and refresh_token access token grants)
//   - secrets: salted, iterated PBKDF2 digests for token and client secrets
//   - token: factories minting one-time plaintext values and persistable
//     entities for codes, access tokens, and refresh tokens
//   - storage: repository contracts and entities; storage/memory provides an
//     in-memory implementation for development and testing
//   - security: audit logging, rate limiting, and clock-skew helpers
//   - instrumentation: OpenTelemetry metrics and tracing
//
// Example usage:
//
//	store := memory.New()
//	engine, err := grant.New(secrets.NewHasher(), store, store, store, store, store,
//	    &grant.Config{DistributeRefreshTokens: true}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := engine.Token(ctx, &grantkit.TokenRequest{
//	    GrantType:    grantkit.GrantTypeAuthorizationCode,
//	    Code:         code,
//	    ClientID:     clientID,
//	    ClientSecret: clientSecret,
//	    RedirectURI:  redirectURI,
//	})
//
// Protocol failures are returned as *grantkit.Error values; match them with
// errors.As and use Error.Status for the transport mapping. Storage failures
// pass through unchanged so the caller owns retry policy.
package grantkit
