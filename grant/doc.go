// Package grant implements the OAuth 2.0 grant orchestrator: authorization
// code requests plus the authorization_code, password, and refresh_token
// access token grants.
//
// The Engine is a pure request-to-response transform; all state lives behind
// the storage contracts it is constructed with. Protocol failures come back
// as *grantkit.Error values carrying the RFC 6749 taxonomy; anything a store
// returns that is not part of the protocol passes through unwrapped so the
// caller keeps retry control.
//
// Lookup failures on codes and tokens are answered with a deliberately
// generic invalid_grant error. The precise reason (not found, revoked,
// expired, binding mismatch) is logged at Debug level instead of being
// surfaced, so probing clients learn nothing.
package grant
