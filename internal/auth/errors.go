package auth

import (
	"errors"

	"authcore/internal/token"
)

// Sentinel errors for the login, refresh, and two-factor flows. The HTTP
// layer collapses most of these into one generic unauthorized response so
// callers cannot distinguish which check failed; the distinct values exist
// for logging and metrics.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already registered")
	ErrWeakPassword         = errors.New("password does not meet minimum requirements")
	ErrTwoFactorRequired    = errors.New("two-factor verification required")
	ErrTwoFactorInvalidCode = errors.New("invalid two-factor code")
	ErrRecoveryCodeInvalid  = errors.New("invalid recovery code")

	// Re-exported token errors so callers can match the whole taxonomy
	// against one package.
	ErrInvalidToken        = token.ErrInvalidToken
	ErrTokenRevoked        = token.ErrTokenRevoked
	ErrFingerprintMismatch = token.ErrFingerprintMismatch
	ErrAccountDisabled     = token.ErrAccountDisabled
)
