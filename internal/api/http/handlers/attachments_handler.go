package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/pkg/jsend"
)

// AttachmentsHandler resolves attachment links and previews.
type AttachmentsHandler struct {
	sessions *service.SessionService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(sessions *service.SessionService) *AttachmentsHandler {
	return &AttachmentsHandler{sessions: sessions}
}

// Preview GET /attachments/:token.
func (h *AttachmentsHandler) Preview(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	preview, err := sess.Attachments.Preview(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(preview))
}
