package grant

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grantkit/grantkit"
	"github.com/grantkit/grantkit/instrumentation"
	"github.com/grantkit/grantkit/security"
	"github.com/grantkit/grantkit/storage"
	"github.com/grantkit/grantkit/token"
)

// Authorize processes an authorization code request and mints a single-use
// code bound to the client, user, redirect URI, and validated scopes.
func (e *Engine) Authorize(ctx context.Context, req *grantkit.AuthorizationRequest) (resp *grantkit.AuthorizationResponse, err error) {
	ctx, span := e.startSpan(ctx, "grant.authorize", trace.WithAttributes(
		attribute.String(instrumentation.AttrClientID, req.ClientID),
	))
	defer func() {
		instrumentation.EndSpan(span, err)
	}()

	if req.ResponseType != grantkit.ResponseTypeCode {
		err = grantkit.ErrInvalidRequest("unsupported response type")
		return nil, err
	}

	client, lookupErr := e.clients.GetClient(ctx, req.ClientID)
	if lookupErr != nil {
		if !errors.Is(lookupErr, storage.ErrNotFound) {
			err = lookupErr
			return nil, err
		}
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure("", req.ClientID, "unknown_client")
		}
		err = grantkit.ErrInvalidRequest("unknown client")
		return nil, err
	}

	if !redirectURIApproved(client, req.RedirectURI) {
		e.Logger.Debug("Authorization request rejected",
			"reason", "redirect_uri_not_approved",
			"client_id", req.ClientID,
			"redirect_uri", req.RedirectURI)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(req.UserID, req.ClientID, "redirect_uri_not_approved")
		}
		err = grantkit.ErrUnauthorizedClient("redirect URI is not registered for this client")
		return nil, err
	}

	scopes, scopeErr := e.validateRequestedScopes(ctx, client.ID, splitScope(req.Scope))
	if scopeErr != nil {
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(req.UserID, req.ClientID, "invalid_scope")
		}
		err = scopeErr
		return nil, err
	}

	if req.UserID == "" {
		err = grantkit.ErrInvalidRequest("authenticated user is required")
		return nil, err
	}

	created, mintErr := e.codeFactory.Create(client, req.UserID, scopes, req.RedirectURI)
	if mintErr != nil {
		err = mintErr
		return nil, err
	}
	if saveErr := e.codes.SaveAuthorizationCode(ctx, created.Code); saveErr != nil {
		err = saveErr
		return nil, err
	}

	e.metrics().RecordCodeIssued(ctx, client.ID)

	if e.Auditor != nil {
		e.Auditor.LogCodeIssued(req.UserID, client.ID, joinScope(scopes))
	}

	e.Logger.Info("Authorization code issued",
		"client_id", client.ID,
		"code_id", created.Code.ID,
		"scope", joinScope(scopes))

	return &grantkit.AuthorizationResponse{
		Code:        created.Plaintext,
		State:       req.State,
		RedirectURI: req.RedirectURI,
	}, nil
}

// Token processes an access token request, dispatching on grant_type
func (e *Engine) Token(ctx context.Context, req *grantkit.TokenRequest) (resp *grantkit.TokenResponse, err error) {
	ctx, span := e.startSpan(ctx, "grant.token", trace.WithAttributes(
		attribute.String(instrumentation.AttrClientID, req.ClientID),
		attribute.String(instrumentation.AttrGrantType, req.GrantType),
	))
	defer func() {
		if err != nil {
			var protocolErr *grantkit.Error
			if errors.As(err, &protocolErr) {
				e.metrics().RecordGrantFailure(ctx, req.GrantType, protocolErr.Code)
			}
		}
		instrumentation.EndSpan(span, err)
	}()

	switch req.GrantType {
	case grantkit.GrantTypeAuthorizationCode:
		resp, err = e.exchangeAuthorizationCode(ctx, req)
	case grantkit.GrantTypePassword:
		resp, err = e.passwordGrant(ctx, req)
	case grantkit.GrantTypeRefreshToken:
		resp, err = e.refreshTokenGrant(ctx, req)
	default:
		err = grantkit.ErrUnsupportedGrantType("unsupported grant type: " + req.GrantType)
	}
	return resp, err
}

// exchangeAuthorizationCode implements the authorization_code grant
func (e *Engine) exchangeAuthorizationCode(ctx context.Context, req *grantkit.TokenRequest) (*grantkit.TokenResponse, error) {
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	code, err := e.redeemAuthorizationCode(ctx, client, req.Code)
	if err != nil {
		return nil, err
	}

	if security.IsExpiredWithGracePeriod(code.ExpiresAt, e.Config.ClockSkewGracePeriod) {
		e.Logger.Debug("Authorization code validation failed",
			"reason", "code_expired",
			"client_id", client.ID,
			"code_id", code.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(code.UserID, client.ID, "authorization_code_expired")
		}
		return nil, grantkit.ErrInvalidGrant("invalid authorization code")
	}

	if code.ClientID != client.ID {
		e.Logger.Debug("Authorization code validation failed",
			"reason", "client_id_mismatch",
			"expected_client_id", code.ClientID,
			"provided_client_id", client.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(code.UserID, client.ID, "client_id_mismatch")
		}
		return nil, grantkit.ErrInvalidGrant("invalid authorization code")
	}

	if code.RedirectURI != req.RedirectURI {
		e.Logger.Debug("Authorization code validation failed",
			"reason", "redirect_uri_mismatch",
			"expected_uri", code.RedirectURI,
			"provided_uri", req.RedirectURI,
			"client_id", client.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(code.UserID, client.ID, "redirect_uri_mismatch")
		}
		return nil, grantkit.ErrInvalidGrant("invalid authorization code")
	}

	if e.Config.DeleteRevokedTokens {
		if err := e.codes.DeleteAuthorizationCode(ctx, code.ID); err != nil {
			e.Logger.Warn("Failed to delete redeemed authorization code", "code_id", code.ID, "error", err)
		}
	}

	access, refresh, err := e.issueTokens(ctx, client, code.UserID, code.Scopes, e.Config.DistributeRefreshTokens)
	if err != nil {
		return nil, err
	}

	e.metrics().RecordCodeExchanged(ctx, client.ID)
	e.metrics().RecordTokenIssued(ctx, client.ID, grantkit.GrantTypeAuthorizationCode)

	if e.Auditor != nil {
		e.Auditor.LogTokenIssued(code.UserID, client.ID, grantkit.GrantTypeAuthorizationCode, joinScope(code.Scopes))
	}

	return e.tokenResponse(access, refresh, code.Scopes), nil
}

// redeemAuthorizationCode resolves and burns an authorization code. When the
// store supports atomic redemption only one concurrent exchange can win; the
// fallback path validates then flags, leaving the race to the store's own
// consistency guarantees.
func (e *Engine) redeemAuthorizationCode(ctx context.Context, client *storage.Client, plaintext string) (*storage.AuthorizationCode, error) {
	if redeemer, ok := e.codes.(storage.AtomicCodeRedeemer); ok {
		code, err := redeemer.AtomicRedeemAuthorizationCode(ctx, plaintext)
		if err == nil {
			return code, nil
		}

		switch {
		case errors.Is(err, storage.ErrRevoked):
			e.logCodeReplay(client.ID, plaintext)
			return nil, grantkit.ErrInvalidGrant("invalid authorization code")
		case errors.Is(err, storage.ErrNotFound):
			e.Logger.Debug("Authorization code validation failed",
				"reason", "code_not_found",
				"client_id", client.ID,
				"code_prefix", safeTruncate(plaintext, secretLogLength))
			if e.Auditor != nil {
				e.Auditor.LogAuthFailure("", client.ID, "invalid_authorization_code")
			}
			return nil, grantkit.ErrInvalidGrant("invalid authorization code")
		default:
			return nil, err
		}
	}

	code, err := e.codes.GetAuthorizationCodeByValue(ctx, plaintext)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.Logger.Debug("Authorization code validation failed",
				"reason", "code_not_found",
				"client_id", client.ID,
				"code_prefix", safeTruncate(plaintext, secretLogLength))
			if e.Auditor != nil {
				e.Auditor.LogAuthFailure("", client.ID, "invalid_authorization_code")
			}
			return nil, grantkit.ErrInvalidGrant("invalid authorization code")
		}
		return nil, err
	}

	if code.Revoked {
		e.logCodeReplay(client.ID, plaintext)
		return nil, grantkit.ErrInvalidGrant("invalid authorization code")
	}

	code.Revoked = true
	if err := e.codes.UpdateAuthorizationCode(ctx, code); err != nil {
		return nil, err
	}

	return code, nil
}

// logCodeReplay records a second redemption attempt of the same code. Replays
// indicate either a token theft attempt or a badly behaved client, so the
// event goes through the rate-limited security channel.
func (e *Engine) logCodeReplay(clientID, plaintext string) {
	if e.allowSecurityEvent("code:" + clientID) {
		e.Logger.Warn("Authorization code replay attempt",
			"client_id", clientID,
			"code_prefix", safeTruncate(plaintext, secretLogLength))
	}
	if e.Auditor != nil {
		e.Auditor.LogEvent(security.Event{
			Type:     security.EventCodeReplayAttempt,
			ClientID: clientID,
			Details: map[string]any{
				"severity": "high",
			},
		})
	}
}

// passwordGrant implements the resource-owner password credentials grant.
// Credential validation happens outside the engine; the caller passes the
// validated principal in UserID or leaves it empty on failure.
func (e *Engine) passwordGrant(ctx context.Context, req *grantkit.TokenRequest) (*grantkit.TokenResponse, error) {
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	if req.UserID == "" {
		e.Logger.Debug("Password grant rejected",
			"reason", "credential_validation_failed",
			"client_id", client.ID,
			"username", req.Username)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure("", client.ID, "invalid_resource_owner_credentials")
		}
		return nil, grantkit.ErrInvalidGrant("invalid username or password")
	}

	scopes, err := e.validateRequestedScopes(ctx, client.ID, splitScope(req.Scope))
	if err != nil {
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(req.UserID, client.ID, "invalid_scope")
		}
		return nil, err
	}

	access, refresh, err := e.issueTokens(ctx, client, req.UserID, scopes, e.Config.DistributeRefreshTokens)
	if err != nil {
		return nil, err
	}

	e.metrics().RecordTokenIssued(ctx, client.ID, grantkit.GrantTypePassword)

	if e.Auditor != nil {
		e.Auditor.LogTokenIssued(req.UserID, client.ID, grantkit.GrantTypePassword, joinScope(scopes))
	}

	return e.tokenResponse(access, refresh, scopes), nil
}

// refreshTokenGrant implements the refresh_token grant with optional scope
// narrowing and rotation
func (e *Engine) refreshTokenGrant(ctx context.Context, req *grantkit.TokenRequest) (*grantkit.TokenResponse, error) {
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	presented, err := e.lookupRefreshToken(ctx, client, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	if security.IsExpiredWithGracePeriod(presented.ExpiresAt, e.Config.ClockSkewGracePeriod) {
		e.Logger.Debug("Refresh token validation failed",
			"reason", "token_expired",
			"client_id", client.ID,
			"token_id", presented.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(presented.UserID, client.ID, "refresh_token_expired")
		}
		return nil, grantkit.ErrInvalidGrant("invalid refresh token")
	}

	if presented.ClientID != client.ID {
		e.Logger.Debug("Refresh token validation failed",
			"reason", "client_id_mismatch",
			"expected_client_id", presented.ClientID,
			"provided_client_id", client.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(presented.UserID, client.ID, "client_id_mismatch")
		}
		return nil, grantkit.ErrInvalidGrant("invalid refresh token")
	}

	// Optional narrowing: a supplied scope must be a subset of what the
	// refresh token was granted; omitted scope reuses the original grant.
	scopes := presented.Scopes
	if req.Scope != "" {
		requested := splitScope(req.Scope)
		if !scopeSubset(requested, presented.Scopes) {
			if e.allowSecurityEvent("scope:" + presented.UserID + ":" + client.ID) {
				e.Logger.Warn("Scope escalation attempt on refresh",
					"client_id", client.ID,
					"granted_scope", joinScope(presented.Scopes),
					"requested_scope", req.Scope)
			}
			if e.Auditor != nil {
				e.Auditor.LogEvent(security.Event{
					Type:     security.EventScopeEscalationAttempt,
					UserID:   presented.UserID,
					ClientID: client.ID,
					Details: map[string]any{
						"granted_scope":   joinScope(presented.Scopes),
						"requested_scope": req.Scope,
					},
				})
			}
			return nil, grantkit.ErrInvalidScope("requested scope exceeds the originally granted scope")
		}
		scopes = requested
	}

	var replacement *token.CreatedRefreshToken
	rotated := false
	if e.Config.RotateRefreshTokens {
		// Consumption happens only after every check has passed; a rejected
		// request leaves the presented token usable.
		if err := e.consumeRefreshToken(ctx, client, presented, req.RefreshToken); err != nil {
			return nil, err
		}

		// The replacement carries the original grant, not the narrowed
		// request, so later refreshes keep their full scope.
		replacement, err = e.mintRefreshToken(ctx, client, presented.UserID, presented.Scopes)
		if err != nil {
			return nil, err
		}
		rotated = true
	}

	access, err := e.mintAccessToken(ctx, client, presented.UserID, scopes)
	if err != nil {
		return nil, err
	}

	e.metrics().RecordTokenRefreshed(ctx, client.ID)
	e.metrics().RecordTokenIssued(ctx, client.ID, grantkit.GrantTypeRefreshToken)

	if e.Auditor != nil {
		e.Auditor.LogTokenRefreshed(presented.UserID, client.ID, rotated)
	}

	return e.tokenResponse(access, replacement, scopes), nil
}

// lookupRefreshToken resolves the presented refresh token without consuming
// it. Validation always runs against the returned entity before any mutation,
// so a rejected request never costs the client its token.
func (e *Engine) lookupRefreshToken(ctx context.Context, client *storage.Client, plaintext string) (*storage.RefreshToken, error) {
	presented, err := e.refreshTokens.GetRefreshTokenByValue(ctx, plaintext)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.Logger.Debug("Refresh token validation failed",
				"reason", "token_not_found",
				"client_id", client.ID,
				"token_prefix", safeTruncate(plaintext, secretLogLength))
			if e.Auditor != nil {
				e.Auditor.LogAuthFailure("", client.ID, "invalid_refresh_token")
			}
			return nil, grantkit.ErrInvalidGrant("invalid refresh token")
		}
		return nil, err
	}

	if presented.Revoked {
		// Under rotation a revoked token coming back is a reuse of a
		// rotated-out generation.
		if e.Config.RotateRefreshTokens {
			e.logRefreshTokenReuse(client.ID, plaintext)
			return nil, grantkit.ErrInvalidGrant("invalid refresh token")
		}
		e.Logger.Debug("Refresh token validation failed",
			"reason", "token_revoked",
			"client_id", client.ID,
			"token_id", presented.ID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure(presented.UserID, client.ID, "refresh_token_revoked")
		}
		return nil, grantkit.ErrInvalidGrant("invalid refresh token")
	}

	return presented, nil
}

// consumeRefreshToken retires the presented refresh token once every check
// has passed, honoring the DeleteRevokedTokens retention policy. With a store
// that supports atomic consumption only one of any number of concurrent
// rotations of the same token can win; losing the race is reported as
// invalid_grant.
func (e *Engine) consumeRefreshToken(ctx context.Context, client *storage.Client, presented *storage.RefreshToken, plaintext string) error {
	consumed := false
	if consumer, ok := e.refreshTokens.(storage.AtomicRefreshTokenConsumer); ok {
		if _, err := consumer.AtomicConsumeRefreshToken(ctx, plaintext); err != nil {
			switch {
			case errors.Is(err, storage.ErrRevoked):
				e.logRefreshTokenReuse(client.ID, plaintext)
				return grantkit.ErrInvalidGrant("invalid refresh token")
			case errors.Is(err, storage.ErrNotFound):
				return grantkit.ErrInvalidGrant("invalid refresh token")
			default:
				return err
			}
		}
		consumed = true
	}

	if e.Config.DeleteRevokedTokens {
		if err := e.refreshTokens.DeleteRefreshToken(ctx, presented.ID); err != nil {
			return err
		}
	} else if !consumed {
		presented.Revoked = true
		if err := e.refreshTokens.UpdateRefreshToken(ctx, presented); err != nil {
			return err
		}
	}

	e.metrics().RecordTokenRevoked(ctx, presented.ClientID, "refresh")

	if e.Auditor != nil {
		e.Auditor.LogTokenRevoked(presented.UserID, presented.ClientID, "refresh")
	}

	return nil
}

// logRefreshTokenReuse records the presentation of an already-consumed
// refresh token through the rate-limited security channel
func (e *Engine) logRefreshTokenReuse(clientID, plaintext string) {
	if e.allowSecurityEvent("refresh:" + clientID) {
		e.Logger.Warn("Rotated refresh token presented again",
			"client_id", clientID,
			"token_prefix", safeTruncate(plaintext, secretLogLength))
	}
	if e.Auditor != nil {
		e.Auditor.LogAuthFailure("", clientID, "refresh_token_reuse")
	}
}

// issueTokens mints and persists an access token and, when requested, a
// refresh token sharing the same client, user, and scopes
func (e *Engine) issueTokens(ctx context.Context, client *storage.Client, userID string, scopes []string, withRefresh bool) (*token.CreatedAccessToken, *token.CreatedRefreshToken, error) {
	access, err := e.mintAccessToken(ctx, client, userID, scopes)
	if err != nil {
		return nil, nil, err
	}

	var refresh *token.CreatedRefreshToken
	if withRefresh {
		refresh, err = e.mintRefreshToken(ctx, client, userID, scopes)
		if err != nil {
			return nil, nil, err
		}
	}

	return access, refresh, nil
}

func (e *Engine) mintAccessToken(ctx context.Context, client *storage.Client, userID string, scopes []string) (*token.CreatedAccessToken, error) {
	created, err := e.accessFactory.Create(client, userID, scopes)
	if err != nil {
		return nil, err
	}
	if err := e.accessTokens.SaveAccessToken(ctx, created.Token); err != nil {
		return nil, err
	}

	return created, nil
}

func (e *Engine) mintRefreshToken(ctx context.Context, client *storage.Client, userID string, scopes []string) (*token.CreatedRefreshToken, error) {
	created, err := e.refreshFactory.Create(client, userID, scopes)
	if err != nil {
		return nil, err
	}
	if err := e.refreshTokens.SaveRefreshToken(ctx, created.Token); err != nil {
		return nil, err
	}
	return created, nil
}

// tokenResponse is the single success response assembly point for all grants
func (e *Engine) tokenResponse(access *token.CreatedAccessToken, refresh *token.CreatedRefreshToken, scopes []string) *grantkit.TokenResponse {
	resp := &grantkit.TokenResponse{
		AccessToken: access.Plaintext,
		TokenType:   grantkit.TokenTypeBearer,
		ExpiresIn:   int64(e.Config.AccessTokenLifetime.Seconds()),
		Scope:       joinScope(scopes),
	}
	if refresh != nil {
		resp.RefreshToken = refresh.Plaintext
	}
	return resp
}
