package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is the core user entity as seen by the auth core.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	// TokenVersion is the user's revocation epoch. It only increases; any
	// token minted at an older version is rejected on refresh.
	TokenVersion int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// NormalizeEmail lowercases and trims an email address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ErrInvalidEmail is returned by ValidateEmail for missing or unparseable
// addresses.
var ErrInvalidEmail = errors.New("invalid email address")

// ValidateEmail checks that email is a plausible single address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Validate checks the user for persistence.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
