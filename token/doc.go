// Package token mints the credentials the grant engine issues: authorization
// codes, access tokens, and refresh tokens.
//
// Each factory produces a CreatedX pair: a one-time plaintext value generated
// from a cryptographically secure random source, and the persistable entity
// which carries only the salted digest of that value. The plaintext is
// returned to the caller exactly once and is never stored.
package token
