package domain

// VerificationSession tracks the email-code step of a ticket submission.
type VerificationSession struct {
	TicketID           string          `json:"ticketId,omitempty"`
	GuestEmail         string          `json:"guestEmail,omitempty"`
	IsVerifying        bool            `json:"isVerifying"`
	Code               string          `json:"code,omitempty"`
	Error              string          `json:"error,omitempty"`
	IsVerified         bool            `json:"isVerified"`
	VerifiedTicketData *VerifiedTicket `json:"verifiedTicketData,omitempty"`
}
