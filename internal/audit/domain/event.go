package domain

import "time"

// Event is one security-relevant action taken by or against a user account.
type Event struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
