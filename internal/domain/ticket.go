package domain

import "time"

// TicketStatus is the backend's lifecycle label for a support ticket.
type TicketStatus string

const (
	TicketStatusUnverified TicketStatus = "unverified"
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Rating is the guest's verdict on a support reply.
type Rating string

const (
	RatingSatisfied    Rating = "satisfied"
	RatingDissatisfied Rating = "dissatisfied"
)

// InteractionType enumerates interactions recorded against a ticket.
type InteractionType string

const (
	InteractionRated  InteractionType = "RATED"
	InteractionViewed InteractionType = "VIEWED"
)

// Ticket is a guest support ticket as returned by the backend.
type Ticket struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Subject      string       `json:"subject"`
	Description  string       `json:"description"`
	DepartmentID string       `json:"departmentId"`
	Status       TicketStatus `json:"status"`
	GuestName    string       `json:"guestName"`
	GuestPhone   string       `json:"guestPhone"`
	GuestEmail   string       `json:"guestEmail"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// TicketAnswer is a staff reply on a ticket.
type TicketAnswer struct {
	ID              string    `json:"id"`
	SupportTicketID string    `json:"supportTicketId"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TrackedTicket is the track-by-code payload.
type TrackedTicket struct {
	Ticket             Ticket              `json:"ticket"`
	Answers            []TicketAnswer      `json:"answers"`
	FileHubAttachments []FileHubAttachment `json:"fileHubAttachments"`
	IsRated            bool                `json:"isRated"`
}

// TicketHistoryItem is one row of the history-by-phone listing.
type TicketHistoryItem struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	Answer      *string      `json:"answer,omitempty"`
	IsRated     bool         `json:"isRated"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// TicketHistory groups history rows with attachment tokens keyed by ticket id.
type TicketHistory struct {
	Tickets     []TicketHistoryItem `json:"tickets"`
	Attachments map[string][]string `json:"attachments"`
}

// VerifiedTicket is the subset of ticket data kept after verification.
type VerifiedTicket struct {
	TicketID   string       `json:"ticketId"`
	Code       string       `json:"code"`
	Subject    string       `json:"subject"`
	Status     TicketStatus `json:"status"`
	GuestName  string       `json:"guestName"`
	GuestPhone string       `json:"guestPhone"`
	GuestEmail string       `json:"guestEmail"`
}

// SubmittedTicket is the confirmation shown once a ticket is verified.
type SubmittedTicket struct {
	Message               string `json:"message"`
	TicketID              string `json:"ticketId"`
	VerificationEmailSent bool   `json:"verificationEmailSent"`
}
