package domain

import "time"

// Credential is a user's TOTP enrollment. The secret is stored encrypted
// (AES-256-GCM) and never leaves the service in plaintext after enrollment.
type Credential struct {
	UserID          string
	EncryptedSecret string
	Enabled         bool
	VerifiedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecoveryCode is one stored single-use fallback credential. CodeHash indexes
// the row for atomic consumption; EncryptedCode allows re-display after a
// step-up verification.
type RecoveryCode struct {
	CodeHash      string
	EncryptedCode string
}
