package dto

import "github.com/spec-kit/support-portal/internal/domain"

// ChatRequest payload for one chat turn.
type ChatRequest struct {
	Question string `json:"question"`
	FAQID    string `json:"faqId"`
}

// ChatReplyResponse is the request/response variant of a chat turn.
type ChatReplyResponse struct {
	Message        domain.ChatMessage `json:"message"`
	ConversationID string             `json:"conversationId,omitempty"`
}

// ChatLogResponse lists the messages of the current conversation.
type ChatLogResponse struct {
	ConversationID string               `json:"conversationId,omitempty"`
	Loading        bool                 `json:"loading"`
	Partial        string               `json:"partial,omitempty"`
	Messages       []domain.ChatMessage `json:"messages"`
}
