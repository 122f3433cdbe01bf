// Package security provides the ambient security features of the grant
// engine: audit logging with PII protection, rate limiting for security-event
// logging, and clock-skew tolerant expiration checks.
package security
