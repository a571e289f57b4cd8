package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted     EventType = "ticket_submitted"
	EventTicketVerified      EventType = "ticket_verified"
	EventVerificationFailed  EventType = "verification_failed"
	EventAttachmentsUploaded EventType = "attachments_uploaded"
	EventAttachmentsSkipped  EventType = "attachments_skipped"
	EventChatReplyCompleted  EventType = "chat_reply_completed"
	EventTicketRated         EventType = "ticket_rated"
)

// AllEventTypes lists every event the portal emits.
var AllEventTypes = []EventType{
	EventTicketSubmitted,
	EventTicketVerified,
	EventVerificationFailed,
	EventAttachmentsUploaded,
	EventAttachmentsSkipped,
	EventChatReplyCompleted,
	EventTicketRated,
}

// Event represents a lifecycle event emitted by a session controller.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, sessionID, ticketID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	DepartmentID          string `json:"department_id"`
	PendingAttachments    int    `json:"pending_attachments"`
	VerificationEmailSent bool   `json:"verification_email_sent"`
}

// TicketVerifiedPayload payload.
type TicketVerifiedPayload struct {
	Code      string              `json:"code"`
	Status    domain.TicketStatus `json:"status"`
	UploadKey bool                `json:"upload_key"`
}

// VerificationFailedPayload payload.
type VerificationFailedPayload struct {
	Reason string `json:"reason"`
}

// AttachmentsUploadedPayload payload.
type AttachmentsUploadedPayload struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
}

// AttachmentsSkippedPayload payload.
type AttachmentsSkippedPayload struct {
	Files []string `json:"files"`
}

// ChatReplyCompletedPayload payload.
type ChatReplyCompletedPayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id"`
	Frames         int    `json:"frames"`
	Skipped        int    `json:"skipped"`
	Chars          int    `json:"chars"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Rating domain.Rating `json:"rating"`
}
