// Package security holds the crypto primitives shared by the auth core:
// password hashing, token identifiers, symmetric encryption at rest, and
// client fingerprints.
package security

import "golang.org/x/crypto/bcrypt"

// DummyHash is a valid bcrypt hash of a random string. Login paths compare
// against it when the account does not exist so timing does not reveal
// whether an email is registered.
const DummyHash = "$2a$12$K3JNi5xUQGjqCm4tMDnxNuT3mJZgdX0unGHxQxqkDZVKkpWQf35aW"

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to the
// valid 4–31 range. Cost 12 is the configured default.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil on match.
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
