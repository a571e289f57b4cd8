package backend

import "github.com/spec-kit/support-portal/internal/domain"

// CreateTicketRequest is the body of POST /support-tickets.
// Attachments are never sent here; Attach only announces that files will follow.
type CreateTicketRequest struct {
	Subject           string   `json:"subject"`
	Description       string   `json:"description"`
	DepartmentID      string   `json:"departmentId"`
	GuestName         string   `json:"guestName"`
	GuestPhone        string   `json:"guestPhone"`
	GuestEmail        string   `json:"guestEmail"`
	Attach            bool     `json:"attach,omitempty"`
	ChooseAttachments []string `json:"chooseAttachments,omitempty"`
}

// CreateTicketResponse is returned once the ticket awaits email verification.
type CreateTicketResponse struct {
	Message               string `json:"message"`
	TicketID              string `json:"ticketId"`
	VerificationEmailSent bool   `json:"verificationEmailSent"`
}

// VerifyTicketRequest carries the 6-digit code mailed to the guest.
type VerifyTicketRequest struct {
	Code     string `json:"code"`
	TicketID string `json:"ticketId,omitempty"`
}

// VerifyTicketResponse is the verified ticket plus optional upload keys.
type VerifyTicketResponse struct {
	Ticket           domain.Ticket `json:"ticket"`
	Message          string        `json:"message"`
	UploadKey        string        `json:"uploadKey,omitempty"`
	FileHubUploadKey string        `json:"fileHubUploadKey,omitempty"`
}

// Key returns the upload key to hand attachments to, preferring the file hub key.
func (r VerifyTicketResponse) Key() string {
	if r.FileHubUploadKey != "" {
		return r.FileHubUploadKey
	}
	return r.UploadKey
}

// Interaction is a recorded ticket interaction.
type Interaction struct {
	ID              string                 `json:"id"`
	SupportTicketID string                 `json:"supportTicketId"`
	GuestID         string                 `json:"guestId"`
	Type            domain.InteractionType `json:"type"`
}

// SignedURL is a time-limited attachment link.
type SignedURL struct {
	SignedURL string `json:"signedUrl"`
}

// AskRequest is the body of the request/response chat call.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
	FAQID          string `json:"faqId,omitempty"`
}

// AskResponse is a complete bot answer.
type AskResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}
