package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grantkit/grantkit/instrumentation"
	"github.com/grantkit/grantkit/security"
	"github.com/grantkit/grantkit/storage"
)

// Store is an in-memory implementation of all storage interfaces.
// Entities are indexed by ID; "by value" lookups scan the candidate set and
// verify each stored digest against the presented plaintext. That scan is
// linear in the number of live entries, which is acceptable for the
// development and single-instance deployments this store targets. A
// production backend would keep its own deterministic index instead.
type Store struct {
	mu sync.RWMutex

	clients map[string]*storage.Client
	scopes  map[string]*storage.Scope

	authCodes     map[string]*storage.AuthorizationCode
	accessTokens  map[string]*storage.AccessToken
	refreshTokens map[string]*storage.RefreshToken

	// Instrumentation
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	// Atomic counters for metrics (lock-free access during metric collection)
	codesCountAtomic         atomic.Int64
	accessTokensCountAtomic  atomic.Int64
	refreshTokensCountAtomic atomic.Int64

	// Cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface checks to ensure Store implements all storage interfaces
var (
	_ storage.ClientStore                = (*Store)(nil)
	_ storage.ScopeStore                 = (*Store)(nil)
	_ storage.AuthorizationCodeStore     = (*Store)(nil)
	_ storage.AccessTokenStore           = (*Store)(nil)
	_ storage.RefreshTokenStore          = (*Store)(nil)
	_ storage.AtomicCodeRedeemer         = (*Store)(nil)
	_ storage.AtomicRefreshTokenConsumer = (*Store)(nil)
)

// New creates a new in-memory store with the default cleanup interval (1 minute)
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates a new in-memory store with a custom cleanup interval.
// If cleanupInterval is 0 or negative, the default of 1 minute is used.
func NewWithInterval(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &Store{
		clients:         make(map[string]*storage.Client),
		scopes:          make(map[string]*storage.Scope),
		authCodes:       make(map[string]*storage.AuthorizationCode),
		accessTokens:    make(map[string]*storage.AccessToken),
		refreshTokens:   make(map[string]*storage.RefreshToken),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
	}

	go s.cleanupLoop()

	return s
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetInstrumentation sets OpenTelemetry instrumentation for the store
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	}

	s.codesCountAtomic.Store(int64(len(s.authCodes)))
	s.accessTokensCountAtomic.Store(int64(len(s.accessTokens)))
	s.refreshTokensCountAtomic.Store(int64(len(s.refreshTokens)))
	s.mu.Unlock()

	if inst != nil {
		err := inst.RegisterStorageSizeCallbacks(
			func() int64 { return s.codesCountAtomic.Load() },
			func() int64 { return s.accessTokensCountAtomic.Load() },
			func() int64 { return s.refreshTokensCountAtomic.Load() },
		)
		if err != nil {
			s.logger.Warn("Failed to register storage size callbacks", "error", err)
		}
	}
}

// Stop gracefully stops the cleanup goroutine
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// ============================================================
// Client and Scope Reference Data
// ============================================================

// SaveClient registers a client. Clients are reference data seeded by the
// embedding application before grant processing starts.
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) error {
	if client == nil || client.ID == "" {
		return fmt.Errorf("invalid client")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client.ID] = client
	s.logger.Debug("Saved client", "client_id", client.ID)
	return nil
}

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	ctx, span := s.startStorageSpan(ctx, "get_client")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_client", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		err = fmt.Errorf("%w: client %s", storage.ErrNotFound, clientID)
		return nil, err
	}

	clientCopy := *client
	return &clientCopy, nil
}

// SaveScope registers a scope. Scopes are reference data seeded by the
// embedding application.
func (s *Store) SaveScope(ctx context.Context, scope *storage.Scope) error {
	if scope == nil || scope.ID == "" {
		return fmt.Errorf("invalid scope")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes[scope.ID] = scope
	return nil
}

// GetScope retrieves a scope by identifier
func (s *Store) GetScope(ctx context.Context, scopeID string) (*storage.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scopes[scopeID]
	if !ok {
		return nil, fmt.Errorf("%w: scope %s", storage.ErrNotFound, scopeID)
	}

	scopeCopy := *scope
	return &scopeCopy, nil
}

// AllowedForClient returns the scope identifiers the client may request
func (s *Store) AllowedForClient(ctx context.Context, clientID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: client %s", storage.ErrNotFound, clientID)
	}

	return append([]string(nil), client.Scopes...), nil
}

// ============================================================
// AuthorizationCodeStore Implementation
// ============================================================

// SaveAuthorizationCode persists a freshly minted code
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) error {
	ctx, span := s.startStorageSpan(ctx, "save_authorization_code")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_authorization_code", err, startTime)
	}()

	if code == nil || code.ID == "" {
		err = fmt.Errorf("invalid authorization code")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.authCodes[code.ID]

	codeCopy := *code
	s.authCodes[code.ID] = &codeCopy

	if !existed {
		s.codesCountAtomic.Add(1)
	}

	s.logger.Debug("Saved authorization code", "code_id", code.ID, "client_id", code.ClientID)
	return nil
}

// GetAuthorizationCodeByValue resolves a plaintext code to its stored entity.
// Expiry is not checked here; the caller applies its own expiration policy.
func (s *Store) GetAuthorizationCodeByValue(ctx context.Context, plaintext string) (*storage.AuthorizationCode, error) {
	ctx, span := s.startStorageSpan(ctx, "get_authorization_code")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_authorization_code", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, code := range s.authCodes {
		if code.SecretDigest.Verify(plaintext) {
			codeCopy := *code
			return &codeCopy, nil
		}
	}

	err = fmt.Errorf("%w: authorization code", storage.ErrNotFound)
	return nil, err
}

// UpdateAuthorizationCode persists a mutation, typically the revoked flag
func (s *Store) UpdateAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) error {
	if code == nil || code.ID == "" {
		return fmt.Errorf("invalid authorization code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authCodes[code.ID]; !ok {
		return fmt.Errorf("%w: authorization code %s", storage.ErrNotFound, code.ID)
	}

	codeCopy := *code
	s.authCodes[code.ID] = &codeCopy
	return nil
}

// DeleteAuthorizationCode removes a code by ID
func (s *Store) DeleteAuthorizationCode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.authCodes[id]; existed {
		delete(s.authCodes, id)
		s.codesCountAtomic.Add(-1)
	}

	s.logger.Debug("Deleted authorization code", "code_id", id)
	return nil
}

// AtomicRedeemAuthorizationCode atomically resolves a plaintext code and marks
// it revoked. Only one of any number of concurrent redemptions of the same
// code receives the entity; the rest get ErrRevoked.
func (s *Store) AtomicRedeemAuthorizationCode(ctx context.Context, plaintext string) (*storage.AuthorizationCode, error) {
	ctx, span := s.startStorageSpan(ctx, "redeem_authorization_code")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "redeem_authorization_code", err, startTime)
	}()

	s.mu.Lock() // write lock for the whole check-and-mark sequence
	defer s.mu.Unlock()

	for _, code := range s.authCodes {
		if !code.SecretDigest.Verify(plaintext) {
			continue
		}

		if code.Revoked {
			err = fmt.Errorf("%w: authorization code %s", storage.ErrRevoked, code.ID)
			return nil, err
		}

		code.Revoked = true
		s.logger.Debug("Redeemed authorization code", "code_id", code.ID)

		codeCopy := *code
		return &codeCopy, nil
	}

	err = fmt.Errorf("%w: authorization code", storage.ErrNotFound)
	return nil, err
}

// ============================================================
// AccessTokenStore Implementation
// ============================================================

// SaveAccessToken persists a freshly minted token
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) error {
	ctx, span := s.startStorageSpan(ctx, "save_access_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_access_token", err, startTime)
	}()

	if token == nil || token.ID == "" {
		err = fmt.Errorf("invalid access token")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.accessTokens[token.ID]

	tokenCopy := *token
	s.accessTokens[token.ID] = &tokenCopy

	if !existed {
		s.accessTokensCountAtomic.Add(1)
	}

	s.logger.Debug("Saved access token", "token_id", token.ID, "client_id", token.ClientID)
	return nil
}

// GetAccessTokenByValue resolves a plaintext token to its stored entity
func (s *Store) GetAccessTokenByValue(ctx context.Context, plaintext string) (*storage.AccessToken, error) {
	ctx, span := s.startStorageSpan(ctx, "get_access_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_access_token", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, token := range s.accessTokens {
		if token.SecretDigest.Verify(plaintext) {
			tokenCopy := *token
			return &tokenCopy, nil
		}
	}

	err = fmt.Errorf("%w: access token", storage.ErrNotFound)
	return nil, err
}

// DeleteAccessToken removes a token by ID
func (s *Store) DeleteAccessToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.accessTokens[id]; existed {
		delete(s.accessTokens, id)
		s.accessTokensCountAtomic.Add(-1)
	}

	s.logger.Debug("Deleted access token", "token_id", id)
	return nil
}

// ============================================================
// RefreshTokenStore Implementation
// ============================================================

// SaveRefreshToken persists a freshly minted token
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	ctx, span := s.startStorageSpan(ctx, "save_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_refresh_token", err, startTime)
	}()

	if token == nil || token.ID == "" {
		err = fmt.Errorf("invalid refresh token")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.refreshTokens[token.ID]

	tokenCopy := *token
	s.refreshTokens[token.ID] = &tokenCopy

	if !existed {
		s.refreshTokensCountAtomic.Add(1)
	}

	s.logger.Debug("Saved refresh token", "token_id", token.ID, "client_id", token.ClientID)
	return nil
}

// GetRefreshTokenByValue resolves a plaintext token to its stored entity
func (s *Store) GetRefreshTokenByValue(ctx context.Context, plaintext string) (*storage.RefreshToken, error) {
	ctx, span := s.startStorageSpan(ctx, "get_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_refresh_token", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, token := range s.refreshTokens {
		if token.SecretDigest.Verify(plaintext) {
			tokenCopy := *token
			return &tokenCopy, nil
		}
	}

	err = fmt.Errorf("%w: refresh token", storage.ErrNotFound)
	return nil, err
}

// UpdateRefreshToken persists a mutation, typically the revoked flag
func (s *Store) UpdateRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	if token == nil || token.ID == "" {
		return fmt.Errorf("invalid refresh token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refreshTokens[token.ID]; !ok {
		return fmt.Errorf("%w: refresh token %s", storage.ErrNotFound, token.ID)
	}

	tokenCopy := *token
	s.refreshTokens[token.ID] = &tokenCopy
	return nil
}

// DeleteRefreshToken removes a token by ID
func (s *Store) DeleteRefreshToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.refreshTokens[id]; existed {
		delete(s.refreshTokens, id)
		s.refreshTokensCountAtomic.Add(-1)
	}

	s.logger.Debug("Deleted refresh token", "token_id", id)
	return nil
}

// AtomicConsumeRefreshToken atomically resolves a plaintext refresh token and
// marks it revoked. Used during rotation so that two concurrent refresh
// requests cannot both rotate the same token generation.
func (s *Store) AtomicConsumeRefreshToken(ctx context.Context, plaintext string) (*storage.RefreshToken, error) {
	ctx, span := s.startStorageSpan(ctx, "consume_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "consume_refresh_token", err, startTime)
	}()

	s.mu.Lock() // write lock for the whole check-and-mark sequence
	defer s.mu.Unlock()

	for _, token := range s.refreshTokens {
		if !token.SecretDigest.Verify(plaintext) {
			continue
		}

		if token.Revoked {
			err = fmt.Errorf("%w: refresh token %s", storage.ErrRevoked, token.ID)
			return nil, err
		}

		token.Revoked = true
		s.logger.Debug("Consumed refresh token", "token_id", token.ID)

		tokenCopy := *token
		return &tokenCopy, nil
	}

	err = fmt.Errorf("%w: refresh token", storage.ErrNotFound)
	return nil, err
}

// ============================================================
// Cleanup
// ============================================================

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0

	// Expired or already-redeemed codes
	for id, code := range s.authCodes {
		if code.Revoked || security.IsExpired(code.ExpiresAt) {
			delete(s.authCodes, id)
			s.codesCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Expired access tokens
	for id, token := range s.accessTokens {
		if security.IsExpired(token.ExpiresAt) {
			delete(s.accessTokens, id)
			s.accessTokensCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Expired refresh tokens; a zero expiry never expires
	for id, token := range s.refreshTokens {
		if security.IsExpired(token.ExpiresAt) {
			delete(s.refreshTokens, id)
			s.refreshTokensCountAtomic.Add(-1)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("Cleaned up expired entries", "count", cleaned)
	}
}

// ============================================================
// Instrumentation Helpers
// ============================================================

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithAttributes(
			attribute.String(instrumentation.AttrStorageOperation, operation),
		))

	return ctx, span
}

// recordStorageOperation records metrics for a storage operation and sets span status
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if s.instrumentation == nil {
		return
	}
	s.instrumentation.Metrics().RecordStorageOperation(ctx, operation, time.Since(startTime), err)
}
