package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// NewJTI returns a fresh 128-bit random token identifier, hex-encoded.
// Every issued token gets its own jti; it is the blacklist key.
func NewJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSecret returns a SHA-256 hash of s, hex-encoded. Used to index stored
// secrets (recovery codes) without persisting them in clear.
func HashSecret(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// SecretHashEqual compares s against a stored HashSecret value in constant time.
func SecretHashEqual(s, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(s)), []byte(storedHash)) == 1
}
