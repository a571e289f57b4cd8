package domain

import (
	"io"
	"time"
)

// MaxAttachmentSize is the per-file limit for ticket attachments.
const MaxAttachmentSize = 10 * 1024 * 1024

// AttachmentMetadata describes a persisted attachment addressed by token.
type AttachmentMetadata struct {
	Token        string    `json:"token,omitempty"`
	FileType     string    `json:"fileType"`
	OriginalName string    `json:"originalName"`
	SizeInBytes  int64     `json:"sizeInBytes"`
	ExpiryDate   time.Time `json:"expiryDate"`
	ContentType  string    `json:"contentType"`
}

// Expired reports whether the attachment is past its expiry date at now.
func (m AttachmentMetadata) Expired(now time.Time) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(now)
}

// FileHubAttachment is an attachment record returned with a tracked ticket.
type FileHubAttachment struct {
	ID             string     `json:"id"`
	OriginalName   string     `json:"originalName"`
	Filename       string     `json:"filename"`
	FileType       string     `json:"fileType"`
	Size           int64      `json:"size"`
	IsGlobal       bool       `json:"isGlobal"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	SignedURL      string     `json:"signedUrl,omitempty"`
	TargetID       string     `json:"targetId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
}

// PendingAttachment is a file staged client-side until the ticket is verified.
type PendingAttachment struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.ReaderAt
}
