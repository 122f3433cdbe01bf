package grant

import (
	"testing"
	"time"

	"github.com/grantkit/grantkit"
	"github.com/grantkit/grantkit/secrets"
	"github.com/grantkit/grantkit/storage/memory"
)

func TestApplyDefaults(t *testing.T) {
	config := applyDefaults(&Config{})

	if config.AuthorizationCodeLifetime != grantkit.DefaultAuthorizationCodeLifetime {
		t.Errorf("unexpected code lifetime %v", config.AuthorizationCodeLifetime)
	}
	if config.AccessTokenLifetime != grantkit.DefaultAccessTokenLifetime {
		t.Errorf("unexpected access token lifetime %v", config.AccessTokenLifetime)
	}
	if config.RefreshTokenLifetime != 0 {
		t.Errorf("refresh token lifetime must default to non-expiring, got %v", config.RefreshTokenLifetime)
	}
	if config.HashIterations != grantkit.DefaultHashIterations {
		t.Errorf("unexpected hash iterations %d", config.HashIterations)
	}
	if config.SaltLength != grantkit.DefaultSaltLength {
		t.Errorf("unexpected salt length %d", config.SaltLength)
	}
	if config.ClockSkewGracePeriod != 5*time.Second {
		t.Errorf("unexpected grace period %v", config.ClockSkewGracePeriod)
	}
	if config.DistributeRefreshTokens || config.RotateRefreshTokens || config.DeleteRevokedTokens {
		t.Error("policy flags must default to false")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	config := applyDefaults(&Config{
		AccessTokenLifetime: 30 * time.Minute,
		HashIterations:      250,
	})

	if config.AccessTokenLifetime != 30*time.Minute {
		t.Errorf("explicit lifetime overridden: %v", config.AccessTokenLifetime)
	}
	if config.HashIterations != 250 {
		t.Errorf("explicit iterations overridden: %d", config.HashIterations)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	store := memory.NewWithInterval(time.Hour)
	t.Cleanup(store.Stop)
	hasher := secrets.NewHasher()

	tests := []struct {
		name string
		run  func() error
	}{
		{"nil hasher", func() error {
			_, err := New(nil, store, store, store, store, store, nil, nil)
			return err
		}},
		{"nil client store", func() error {
			_, err := New(hasher, nil, store, store, store, store, nil, nil)
			return err
		}},
		{"nil scope store", func() error {
			_, err := New(hasher, store, nil, store, store, store, nil, nil)
			return err
		}},
		{"nil code store", func() error {
			_, err := New(hasher, store, store, nil, store, store, nil, nil)
			return err
		}},
		{"nil access token store", func() error {
			_, err := New(hasher, store, store, store, nil, store, nil, nil)
			return err
		}},
		{"nil refresh token store", func() error {
			_, err := New(hasher, store, store, store, store, nil, nil, nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	store := memory.NewWithInterval(time.Hour)
	t.Cleanup(store.Stop)

	engine, err := New(secrets.NewHasher(), store, store, store, store, store, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if engine.Config.AccessTokenLifetime != grantkit.DefaultAccessTokenLifetime {
		t.Errorf("defaults not applied: %v", engine.Config.AccessTokenLifetime)
	}
	if engine.Logger == nil {
		t.Error("expected a fallback logger")
	}
}
