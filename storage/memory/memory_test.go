package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/grantkit/grantkit/internal/testutil"
	"github.com/grantkit/grantkit/secrets"
	"github.com/grantkit/grantkit/storage"
)

const (
	testSaltLength = 16
	testIterations = 1000
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewWithInterval(time.Hour)
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(s.Stop)
	return s
}

func mustDigest(t *testing.T, plaintext string) secrets.Digest {
	t.Helper()
	digest, err := secrets.NewHasher().Derive([]byte(plaintext), testSaltLength, testIterations)
	if err != nil {
		t.Fatalf("failed to derive digest: %v", err)
	}
	return digest
}

func TestClientRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := &storage.Client{
		ID:           "app1",
		RedirectURIs: []string{"https://app1.example.com/callback"},
		Scopes:       []string{"read", "write"},
	}
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient failed: %v", err)
	}

	got, err := s.GetClient(ctx, "app1")
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if got.ID != "app1" || len(got.RedirectURIs) != 1 {
		t.Errorf("unexpected client: %+v", got)
	}

	if _, err := s.GetClient(ctx, "unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown client, got %v", err)
	}
}

func TestScopeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveScope(ctx, &storage.Scope{ID: "read", Description: "read access"}); err != nil {
		t.Fatalf("SaveScope failed: %v", err)
	}

	scope, err := s.GetScope(ctx, "read")
	if err != nil {
		t.Fatalf("GetScope failed: %v", err)
	}
	if scope.Description != "read access" {
		t.Errorf("unexpected scope: %+v", scope)
	}

	if _, err := s.GetScope(ctx, "admin"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown scope, got %v", err)
	}
}

func TestAllowedForClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := &storage.Client{ID: "app1", Scopes: []string{"read", "write"}}
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient failed: %v", err)
	}

	allowed, err := s.AllowedForClient(ctx, "app1")
	if err != nil {
		t.Fatalf("AllowedForClient failed: %v", err)
	}
	if len(allowed) != 2 || allowed[0] != "read" || allowed[1] != "write" {
		t.Errorf("unexpected allowed scopes: %v", allowed)
	}

	if _, err := s.AllowedForClient(ctx, "unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown client, got %v", err)
	}
}

func TestAuthorizationCodeByValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := &storage.AuthorizationCode{
		ID:           "code-1",
		SecretDigest: mustDigest(t, "plaintext-code"),
		ClientID:     "app1",
		UserID:       "alice",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode failed: %v", err)
	}

	got, err := s.GetAuthorizationCodeByValue(ctx, "plaintext-code")
	if err != nil {
		t.Fatalf("GetAuthorizationCodeByValue failed: %v", err)
	}
	if got.ID != "code-1" || got.UserID != "alice" {
		t.Errorf("unexpected code: %+v", got)
	}

	if _, err := s.GetAuthorizationCodeByValue(ctx, "wrong-value"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong value, got %v", err)
	}
}

func TestAtomicRedeemAuthorizationCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := &storage.AuthorizationCode{
		ID:           "code-1",
		SecretDigest: mustDigest(t, "plaintext-code"),
		ClientID:     "app1",
		UserID:       "alice",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode failed: %v", err)
	}

	redeemed, err := s.AtomicRedeemAuthorizationCode(ctx, "plaintext-code")
	if err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if !redeemed.Revoked {
		t.Error("redeemed code must be marked revoked")
	}

	if _, err := s.AtomicRedeemAuthorizationCode(ctx, "plaintext-code"); !errors.Is(err, storage.ErrRevoked) {
		t.Errorf("expected ErrRevoked on second redemption, got %v", err)
	}

	if _, err := s.AtomicRedeemAuthorizationCode(ctx, "never-issued"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestAtomicRedeemAuthorizationCodeConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plaintext := testutil.GenerateRandomString(32)
	code := &storage.AuthorizationCode{
		ID:           "code-1",
		SecretDigest: mustDigest(t, plaintext),
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AtomicRedeemAuthorizationCode(ctx, plaintext); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly 1 successful redemption, got %d", count)
	}
}

func TestAccessTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := &storage.AccessToken{
		ID:           "at-1",
		SecretDigest: mustDigest(t, "access-value"),
		ClientID:     "app1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := s.SaveAccessToken(ctx, token); err != nil {
		t.Fatalf("SaveAccessToken failed: %v", err)
	}

	got, err := s.GetAccessTokenByValue(ctx, "access-value")
	if err != nil {
		t.Fatalf("GetAccessTokenByValue failed: %v", err)
	}
	if got.ID != "at-1" {
		t.Errorf("unexpected token: %+v", got)
	}

	if err := s.DeleteAccessToken(ctx, "at-1"); err != nil {
		t.Fatalf("DeleteAccessToken failed: %v", err)
	}
	if _, err := s.GetAccessTokenByValue(ctx, "access-value"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := &storage.RefreshToken{
		ID:           "rt-1",
		SecretDigest: mustDigest(t, "refresh-value"),
		ClientID:     "app1",
		UserID:       "alice",
	}
	if err := s.SaveRefreshToken(ctx, token); err != nil {
		t.Fatalf("SaveRefreshToken failed: %v", err)
	}

	got, err := s.GetRefreshTokenByValue(ctx, "refresh-value")
	if err != nil {
		t.Fatalf("GetRefreshTokenByValue failed: %v", err)
	}
	if got.ID != "rt-1" {
		t.Errorf("unexpected token: %+v", got)
	}

	got.Revoked = true
	if err := s.UpdateRefreshToken(ctx, got); err != nil {
		t.Fatalf("UpdateRefreshToken failed: %v", err)
	}

	updated, err := s.GetRefreshTokenByValue(ctx, "refresh-value")
	if err != nil {
		t.Fatalf("GetRefreshTokenByValue after update failed: %v", err)
	}
	if !updated.Revoked {
		t.Error("expected revoked flag to persist")
	}

	if err := s.DeleteRefreshToken(ctx, "rt-1"); err != nil {
		t.Fatalf("DeleteRefreshToken failed: %v", err)
	}
	if _, err := s.GetRefreshTokenByValue(ctx, "refresh-value"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAtomicConsumeRefreshToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := &storage.RefreshToken{
		ID:           "rt-1",
		SecretDigest: mustDigest(t, "refresh-value"),
		ClientID:     "app1",
	}
	if err := s.SaveRefreshToken(ctx, token); err != nil {
		t.Fatalf("SaveRefreshToken failed: %v", err)
	}

	consumed, err := s.AtomicConsumeRefreshToken(ctx, "refresh-value")
	if err != nil {
		t.Fatalf("first consumption failed: %v", err)
	}
	if !consumed.Revoked {
		t.Error("consumed token must be marked revoked")
	}

	if _, err := s.AtomicConsumeRefreshToken(ctx, "refresh-value"); !errors.Is(err, storage.ErrRevoked) {
		t.Errorf("expected ErrRevoked on second consumption, got %v", err)
	}
}

func TestUpdateUnknownEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := &storage.AuthorizationCode{ID: "missing"}
	if err := s.UpdateAuthorizationCode(ctx, code); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating unknown code, got %v", err)
	}

	token := &storage.RefreshToken{ID: "missing"}
	if err := s.UpdateRefreshToken(ctx, token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating unknown token, got %v", err)
	}
}

func TestCleanupRemovesExpiredEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Expired well past the clock skew grace period
	past := time.Now().Add(-time.Hour)

	entries := []struct {
		save func() error
	}{
		{func() error {
			return s.SaveAuthorizationCode(ctx, &storage.AuthorizationCode{
				ID: "expired-code", SecretDigest: mustDigest(t, "c1"), ExpiresAt: past,
			})
		}},
		{func() error {
			return s.SaveAccessToken(ctx, &storage.AccessToken{
				ID: "expired-at", SecretDigest: mustDigest(t, "a1"), ExpiresAt: past,
			})
		}},
		{func() error {
			return s.SaveRefreshToken(ctx, &storage.RefreshToken{
				ID: "expired-rt", SecretDigest: mustDigest(t, "r1"), ExpiresAt: past,
			})
		}},
		{func() error {
			// Zero expiry never expires
			return s.SaveRefreshToken(ctx, &storage.RefreshToken{
				ID: "eternal-rt", SecretDigest: mustDigest(t, "r2"),
			})
		}},
	}
	for _, e := range entries {
		if err := e.save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	s.cleanup()

	if _, err := s.GetAuthorizationCodeByValue(ctx, "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected expired code to be cleaned up, got %v", err)
	}
	if _, err := s.GetAccessTokenByValue(ctx, "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected expired access token to be cleaned up, got %v", err)
	}
	if _, err := s.GetRefreshTokenByValue(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected expired refresh token to be cleaned up, got %v", err)
	}
	if _, err := s.GetRefreshTokenByValue(ctx, "r2"); err != nil {
		t.Errorf("non-expiring refresh token must survive cleanup, got %v", err)
	}
}

func TestStoreCopiesEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := &storage.AuthorizationCode{
		ID:           "code-1",
		SecretDigest: mustDigest(t, "plaintext-code"),
		UserID:       "alice",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode failed: %v", err)
	}

	got, err := s.GetAuthorizationCodeByValue(ctx, "plaintext-code")
	if err != nil {
		t.Fatalf("GetAuthorizationCodeByValue failed: %v", err)
	}
	got.UserID = "mallory"

	again, err := s.GetAuthorizationCodeByValue(ctx, "plaintext-code")
	if err != nil {
		t.Fatalf("GetAuthorizationCodeByValue failed: %v", err)
	}
	if again.UserID != "alice" {
		t.Error("mutating a returned entity must not affect the stored version")
	}
}
