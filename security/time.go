package security

import "time"

// DefaultClockSkewGracePeriod is the default grace period for expiration
// checks. It prevents false expiration errors caused by clock drift between
// the issuing and the storing system; 5 seconds covers typical NTP drift
// while extending token life by a negligible amount.
const DefaultClockSkewGracePeriod = 5 * time.Second

// IsExpired checks expiration with the default clock skew grace period.
// A zero expiresAt means no expiration.
func IsExpired(expiresAt time.Time) bool {
	return IsExpiredWithGracePeriod(expiresAt, DefaultClockSkewGracePeriod)
}

// IsExpiredWithGracePeriod checks expiration with a custom grace period.
// The entity only counts as expired once it has been expired for longer than
// the grace period.
func IsExpiredWithGracePeriod(expiresAt time.Time, gracePeriod time.Duration) bool {
	if expiresAt.IsZero() {
		return false // no expiration
	}
	return time.Now().After(expiresAt.Add(gracePeriod))
}
