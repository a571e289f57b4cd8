// Package attachment resolves attachment links and builds previews.
package attachment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/domain"
)

// URLSource issues attachment links.
type URLSource interface {
	AttachmentSignedURL(ctx context.Context, token string) (string, error)
	AttachmentURL(token string) string
}

// Link is a resolved attachment URL.
type Link struct {
	URL string `json:"url"`
	// Signed is true when the URL was issued by the backend.
	Signed bool `json:"signed"`
	// Fallback is true when signing failed and the direct URL is used instead.
	Fallback bool `json:"fallback,omitempty"`
}

// Resolver picks the attachment URL according to the configured access mode.
type Resolver struct {
	src    URLSource
	mode   string
	logger *zap.Logger
}

// NewResolver builds a resolver for mode (config.MediaAccessDirect or config.MediaAccessSignedURL).
func NewResolver(src URLSource, mode string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode != config.MediaAccessSignedURL {
		mode = config.MediaAccessDirect
	}
	return &Resolver{src: src, mode: mode, logger: logger}
}

// Mode returns the active access mode.
func (r *Resolver) Mode() string {
	return r.mode
}

// Resolve returns the URL for token. In signed mode a signing failure falls
// back to the direct URL, so Resolve always yields a link.
func (r *Resolver) Resolve(ctx context.Context, token string) Link {
	direct := r.src.AttachmentURL(token)
	if r.mode != config.MediaAccessSignedURL {
		return Link{URL: direct}
	}
	signed, err := r.src.AttachmentSignedURL(ctx, token)
	if err != nil || signed == "" {
		r.logger.Warn("signed attachment url unavailable, using direct url",
			zap.String("token", token),
			zap.Error(err),
		)
		return Link{URL: direct, Fallback: true}
	}
	return Link{URL: signed, Signed: true}
}

// Kind is the preview renderer for a content type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindPDF   Kind = "pdf"
	KindOther Kind = "other"
)

// KindOf classifies a MIME content type.
func KindOf(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case strings.HasPrefix(ct, "audio/"):
		return KindAudio
	case strings.HasPrefix(ct, "application/pdf"):
		return KindPDF
	}
	return KindOther
}

// FormatSize renders bytes as B, KB or MB with one decimal.
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

// Preview is everything a viewer needs to render one attachment.
type Preview struct {
	Token       string    `json:"token"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Kind        Kind      `json:"kind"`
	Size        string    `json:"size"`
	SizeInBytes int64     `json:"sizeInBytes"`
	ExpiryDate  time.Time `json:"expiryDate"`
	Expired     bool      `json:"expired"`
	Link        Link      `json:"link"`
}

// NewPreview combines metadata and a resolved link.
func NewPreview(token string, meta domain.AttachmentMetadata, link Link, now time.Time) Preview {
	return Preview{
		Token:       token,
		Name:        meta.OriginalName,
		ContentType: meta.ContentType,
		Kind:        KindOf(meta.ContentType),
		Size:        FormatSize(meta.SizeInBytes),
		SizeInBytes: meta.SizeInBytes,
		ExpiryDate:  meta.ExpiryDate,
		Expired:     meta.Expired(now),
		Link:        link,
	}
}
