package domain

import "time"

// Session identifies one portal visitor (one browser widget lifetime).
type Session struct {
	ID        string
	GuestID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
