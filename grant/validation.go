package grant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grantkit/grantkit"
	"github.com/grantkit/grantkit/secrets"
	"github.com/grantkit/grantkit/storage"
)

// dummyDigest is verified against when a client lookup fails, so that the
// derivation work is done whether or not the client exists. Without it the
// response time would reveal which client IDs are registered.
var dummyDigest = mustDummyDigest()

func mustDummyDigest() secrets.Digest {
	digest, err := secrets.NewHasher().Derive([]byte("dummy-client-secret"), grantkit.DefaultSaltLength, grantkit.DefaultHashIterations)
	if err != nil {
		panic(fmt.Sprintf("failed to derive dummy digest: %v", err))
	}
	return digest
}

// authenticateClient resolves a client and verifies its secret.
// The digest verification always runs, against a dummy digest when the
// client is unknown. Storage failures other than not-found pass through.
func (e *Engine) authenticateClient(ctx context.Context, clientID, clientSecret string) (*storage.Client, error) {
	client, err := e.clients.GetClient(ctx, clientID)

	digestToVerify := dummyDigest
	if err == nil {
		digestToVerify = client.SecretDigest
	}

	verified := e.hasher.Verify(clientSecret, digestToVerify)

	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		e.Logger.Debug("Client authentication failed",
			"reason", "client_not_found",
			"client_id", clientID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure("", clientID, "unknown_client")
		}
		return nil, grantkit.ErrInvalidClient("client authentication failed")
	}

	if !verified {
		e.Logger.Debug("Client authentication failed",
			"reason", "secret_mismatch",
			"client_id", clientID)
		if e.Auditor != nil {
			e.Auditor.LogAuthFailure("", clientID, "invalid_client_secret")
		}
		return nil, grantkit.ErrInvalidClient("client authentication failed")
	}

	return client, nil
}

// redirectURIApproved reports whether uri exactly matches one of the client's
// registered redirect URIs. Comparison is case-sensitive string equality;
// patterns and prefixes are never matched.
func redirectURIApproved(client *storage.Client, uri string) bool {
	if uri == "" {
		return false
	}
	for _, registered := range client.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// splitScope splits a space-separated scope string into identifiers
func splitScope(scope string) []string {
	return strings.Fields(scope)
}

// joinScope renders scope identifiers as the space-joined wire form
func joinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

// validateRequestedScopes checks that every requested scope identifier is
// both allowed for the client and known to the scope store. Returns the
// validated identifiers, or an invalid_scope error naming the first offender.
func (e *Engine) validateRequestedScopes(ctx context.Context, clientID string, scopes []string) ([]string, error) {
	allowed, err := e.scopes.AllowedForClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}

	for _, id := range scopes {
		if _, ok := allowedSet[id]; !ok {
			return nil, grantkit.ErrInvalidScope(fmt.Sprintf("scope %q is not allowed for this client", id))
		}
		if _, err := e.scopes.GetScope(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, grantkit.ErrInvalidScope(fmt.Sprintf("unknown scope %q", id))
			}
			return nil, err
		}
	}

	return scopes, nil
}

// scopeSubset reports whether every requested scope is among the granted ones
func scopeSubset(requested, granted []string) bool {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, id := range granted {
		grantedSet[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := grantedSet[id]; !ok {
			return false
		}
	}
	return true
}
