package instrumentation

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span and metric attribute keys.
//
// SECURITY: Never record actual secret values (plaintext codes, access or
// refresh tokens, client secrets) as attributes. Only metadata such as grant
// types, error codes, and entity counts belongs in observability data.
const (
	// Grant flow attributes
	AttrClientID  = "oauth.client_id"  // Client identifier (non-secret)
	AttrUserID    = "oauth.user_id"    // User identifier (non-secret)
	AttrScope     = "oauth.scope"      // Requested or granted scopes
	AttrGrantType = "oauth.grant_type" // OAuth grant type
	AttrError     = "oauth.error"      // Error taxonomy code

	// Storage attributes
	AttrStorageOperation = "storage.operation"
	AttrStorageResult    = "storage.result"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// EndSpan ends a span, recording err first when present (nil-safe)
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	RecordError(span, err)
	span.End()
}
