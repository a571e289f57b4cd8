package dto

import "time"

// CreateSessionRequest payload. Every field is optional; a guest may register later.
type CreateSessionRequest struct {
	GuestID string `json:"guestId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// SessionResponse is returned when a session is issued.
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Language  string    `json:"language"`
}
