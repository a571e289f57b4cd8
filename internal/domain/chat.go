package domain

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is a finalized entry in the chat log.
type ChatMessage struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Sender         Sender     `json:"sender"`
	Avatar         string     `json:"avatar"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
}

// FrameType tags a decoded stream frame.
type FrameType string

const (
	FrameMessage          FrameType = "message"
	FrameConversationMeta FrameType = "conversation_meta"
	FrameDone             FrameType = "done"
	// FrameError carries a user-facing failure message in place of a reply.
	FrameError FrameType = "error"
)

// StreamFrame is one parsed `data:` line of a chat stream.
type StreamFrame struct {
	Type           FrameType
	Text           string
	ConversationID string
}
