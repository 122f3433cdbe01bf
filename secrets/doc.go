// Package secrets derives and verifies salted, iterated digests for token and
// client secrets using PBKDF2-HMAC-SHA256.
//
// Plaintext secrets are never stored: every issued code, access token, refresh
// token, and client secret is persisted only as a Digest (hash + salt +
// iteration count, base64-encoded). Verification recomputes the derivation
// with the stored parameters and compares in constant time, so candidate
// secrets cannot be probed through timing side-channels.
package secrets
