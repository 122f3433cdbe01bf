package grantkit

import (
	"fmt"
	"net/http"
)

// OAuth error codes as constants (RFC 6749 Section 5.2)
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidScope         = "invalid_scope"
)

// statusByErrorCode is the static error-kind → HTTP status mapping.
// invalid_client maps to 401 per RFC 6749 Section 5.2; everything else in the
// taxonomy is a 400.
var statusByErrorCode = map[string]int{
	ErrorCodeInvalidRequest:       http.StatusBadRequest,
	ErrorCodeInvalidClient:        http.StatusUnauthorized,
	ErrorCodeInvalidGrant:         http.StatusBadRequest,
	ErrorCodeUnauthorizedClient:   http.StatusBadRequest,
	ErrorCodeUnsupportedGrantType: http.StatusBadRequest,
	ErrorCodeInvalidScope:         http.StatusBadRequest,
}

// Error represents an OAuth 2.0 protocol error response.
// It is always returned as a value the caller can match with errors.As;
// the engine never panics on protocol violations.
type Error struct {
	Code        string // OAuth error code (e.g., "invalid_grant")
	Description string // Human-readable error description
	URI         string // Optional documentation URI
	Status      int    // HTTP status code for boundary adapters
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Response converts the error into its wire representation
func (e *Error) Response() *ErrorResponse {
	return &ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
		ErrorURI:         e.URI,
	}
}

// NewError creates a new protocol error for the given taxonomy code.
// Unknown codes fall back to a 400 status.
func NewError(code, description string) *Error {
	status, ok := statusByErrorCode[code]
	if !ok {
		status = http.StatusBadRequest
	}
	return &Error{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common OAuth errors as reusable constructors
var (
	// ErrInvalidRequest indicates the request is malformed or missing required parameters
	ErrInvalidRequest = func(desc string) *Error {
		return NewError(ErrorCodeInvalidRequest, desc)
	}

	// ErrInvalidClient indicates client authentication failed
	ErrInvalidClient = func(desc string) *Error {
		return NewError(ErrorCodeInvalidClient, desc)
	}

	// ErrInvalidGrant indicates the authorization code or refresh token is invalid, revoked, or expired
	ErrInvalidGrant = func(desc string) *Error {
		return NewError(ErrorCodeInvalidGrant, desc)
	}

	// ErrUnauthorizedClient indicates the client is not authorized for the request
	ErrUnauthorizedClient = func(desc string) *Error {
		return NewError(ErrorCodeUnauthorizedClient, desc)
	}

	// ErrUnsupportedGrantType indicates the grant type is not supported
	ErrUnsupportedGrantType = func(desc string) *Error {
		return NewError(ErrorCodeUnsupportedGrantType, desc)
	}

	// ErrInvalidScope indicates the requested scope is invalid, unknown, or exceeds the granted scope
	ErrInvalidScope = func(desc string) *Error {
		return NewError(ErrorCodeInvalidScope, desc)
	}
)
