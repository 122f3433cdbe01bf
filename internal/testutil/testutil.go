// Package testutil provides testing helpers shared across packages: random
// value generation and a controllable time source for deterministic expiry
// testing.
package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// MockTime provides a controllable time source for deterministic testing.
// Its Now method can be injected wherever a `func() time.Time` is accepted.
type MockTime struct {
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// GenerateRandomString creates a random URL-safe string of the given byte
// length. Panics on entropy failure, which only happens when the OS random
// source is broken.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
