package domain

import "time"

// Session is one device login. Rows are soft-deactivated, never hard-deleted,
// so the table doubles as an audit trail.
type Session struct {
	ID        string
	UserID    string
	IPAddress string
	// Browser, OS, and Device are parsed heuristically from the User-Agent.
	// Informational only; the security boundary is fingerprint + tokenVersion
	// + blacklist, not these labels.
	Browser string
	OS      string
	Device  string
	// TokenVersion is the user's revocation epoch at session creation.
	TokenVersion int64
	IsActive     bool
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	// ExpiresAt mirrors the refresh token TTL at creation.
	ExpiresAt time.Time
}
