package security

import (
	"testing"
	"time"
)

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "zero time never expires",
			expiresAt: time.Time{},
			want:      false,
		},
		{
			name:      "future expiry",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "long past expiry",
			expiresAt: time.Now().Add(-time.Hour),
			want:      true,
		},
		{
			name:      "just expired, within grace period",
			expiresAt: time.Now().Add(-time.Second),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.expiresAt); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsExpiredWithGracePeriod(t *testing.T) {
	expiresAt := time.Now().Add(-10 * time.Second)

	if IsExpiredWithGracePeriod(expiresAt, time.Minute) {
		t.Error("expired 10s ago with 1m grace: want not expired")
	}
	if !IsExpiredWithGracePeriod(expiresAt, time.Second) {
		t.Error("expired 10s ago with 1s grace: want expired")
	}
	if IsExpiredWithGracePeriod(time.Time{}, 0) {
		t.Error("zero expiry must never report expired")
	}
}
