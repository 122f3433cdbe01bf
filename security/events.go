package security

// Event type constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when logging security-relevant events.
const (
	// EventCodeIssued is logged when an authorization code is issued
	EventCodeIssued = "authorization_code_issued"

	// EventCodeReplayAttempt is logged when a revoked authorization code is
	// presented again; a strong indicator of code theft
	EventCodeReplayAttempt = "authorization_code_replay_attempt"

	// EventTokenIssued is logged when a new access token is issued to a client
	EventTokenIssued = "token_issued"

	// EventTokenRefreshed is logged when an access token is issued via a refresh grant
	EventTokenRefreshed = "token_refreshed"

	// EventTokenRevoked is logged when a token or code is revoked
	EventTokenRevoked = "token_revoked"

	// EventAuthFailure is logged when client authentication or a grant fails
	EventAuthFailure = "auth_failure"

	// EventScopeEscalationAttempt is logged when a request asks for scopes
	// beyond what the client or the presented grant allows
	EventScopeEscalationAttempt = "scope_escalation_attempt"
)
