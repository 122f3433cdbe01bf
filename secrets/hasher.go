package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultKeyLength is the derived key length in bytes
const DefaultKeyLength = 20

// Digest is the stored representation of a secret: the derived key and the
// parameters needed to re-derive it. Hash and Salt are standard base64.
// Iterations is always positive for a digest produced by a Hasher.
type Digest struct {
	Hash       string
	Salt       string
	Iterations int
}

// Verify recomputes the derivation for candidate using the stored salt and
// iteration count and compares the result to the stored hash byte-for-byte
// in constant time. A malformed digest never verifies.
func (d Digest) Verify(candidate string) bool {
	if candidate == "" || d.Iterations <= 0 {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(d.Hash)
	if err != nil || len(hash) == 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(d.Salt)
	if err != nil || len(salt) == 0 {
		return false
	}

	computed := pbkdf2.Key([]byte(candidate), salt, d.Iterations, len(hash), sha256.New)
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

// Hasher derives secret digests with a fixed output length.
// Construct one explicitly and inject it where digests are minted or checked;
// there is no package-level default instance.
type Hasher struct {
	keyLength int
}

// NewHasher creates a hasher with the default derived key length
func NewHasher() *Hasher {
	return &Hasher{keyLength: DefaultKeyLength}
}

// NewHasherWithKeyLength creates a hasher with a custom derived key length
func NewHasherWithKeyLength(keyLength int) (*Hasher, error) {
	if keyLength <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", keyLength)
	}
	return &Hasher{keyLength: keyLength}, nil
}

// Derive generates a fresh random salt of saltLength bytes and derives a
// digest from secret over the given number of iterations.
//
// Argument violations are programmer errors, returned as plain errors; they
// are never part of the OAuth error taxonomy.
func (h *Hasher) Derive(secret []byte, saltLength, iterations int) (Digest, error) {
	if len(secret) == 0 {
		return Digest{}, fmt.Errorf("secret must not be empty")
	}
	if saltLength <= 0 {
		return Digest{}, fmt.Errorf("salt length must be positive, got %d", saltLength)
	}
	if iterations <= 0 {
		return Digest{}, fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return Digest{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := h.DeriveWithSalt(secret, salt, iterations)
	return Digest{
		Hash:       base64.StdEncoding.EncodeToString(key),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Iterations: iterations,
	}, nil
}

// DeriveWithSalt re-derives a key for secret with an explicit salt.
// Used for verification; Digest.Verify is the usual entry point.
func (h *Hasher) DeriveWithSalt(secret, salt []byte, iterations int) []byte {
	return pbkdf2.Key(secret, salt, iterations, h.keyLength, sha256.New)
}

// Verify checks candidate against a stored digest
func (h *Hasher) Verify(candidate string, digest Digest) bool {
	return digest.Verify(candidate)
}
