// Package storage defines the repository contracts and entities the grant
// engine persists through.
//
// The engine never talks to a database directly: clients, scopes,
// authorization codes, access tokens, and refresh tokens are reached only via
// the store interfaces here. Every entity holds a secret digest in place of
// its plaintext value, so "by value" lookups are resolved by the store
// (digest verification, or an indexing scheme of the store's choosing).
//
// Stores may additionally implement the atomic capability interfaces
// (AtomicCodeRedeemer, AtomicRefreshTokenConsumer) to guarantee at-most-one
// successful redemption under concurrency; the engine discovers these by type
// assertion and falls back to read-check-update otherwise.
//
// Implementations are provided in subpackages:
//   - storage/memory: in-memory storage for development and testing
package storage
