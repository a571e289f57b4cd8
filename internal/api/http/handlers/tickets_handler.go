package handlers

import (
	"bytes"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/pkg/jsend"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// TicketsHandler drives the ticket submission flow of a session.
type TicketsHandler struct {
	sessions *service.SessionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(sessions *service.SessionService) *TicketsHandler {
	return &TicketsHandler{sessions: sessions}
}

// StageAttachment POST /tickets/attachments (multipart field "file").
func (h *TicketsHandler) StageAttachment(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", map[string]any{"file": "required"})
	}
	if header.Size > domain.MaxAttachmentSize {
		return store.ErrAttachmentTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, domain.MaxAttachmentSize+1))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	contentType := header.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	if err := sess.Ticket.Stage(domain.PendingAttachment{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(jsend.Success(dto.StagedAttachmentResponse{Pending: sess.Ticket.Snapshot().Pending}))
}

// UnstageAttachment DELETE /tickets/attachments/:name.
func (h *TicketsHandler) UnstageAttachment(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	if !sess.Ticket.Unstage(c.Params("name")) {
		return apperrors.NewNotFound("attachment", map[string]any{"name": c.Params("name")})
	}
	return c.JSON(jsend.Success(dto.StagedAttachmentResponse{Pending: sess.Ticket.Snapshot().Pending}))
}

// Submit POST /tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := sess.Ticket.Submit(c.UserContext(), req.Form())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(jsend.Success(result))
}

// Verify POST /tickets/verify.
func (h *TicketsHandler) Verify(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req dto.VerifyTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := sess.Ticket.SubmitCode(c.UserContext(), req.Code)
	if err != nil {
		return err
	}

	notice := ""
	switch {
	case result.Upload.Skipped:
		notice = sess.Printer.T("ui.upload_skipped")
	case len(result.Upload.Failed()) > 0:
		notice = sess.Printer.T("ui.upload_partial")
	}
	return c.JSON(jsend.Success(dto.VerifyTicketResponse{
		Ticket:  result.Ticket,
		Message: result.Message,
		Upload:  dto.NewUploadReport(result.Upload, notice),
	}))
}

// Cancel POST /tickets/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	sess.Ticket.Cancel()
	return c.JSON(jsend.Success(sess.Ticket.Snapshot()))
}

// State GET /tickets/state.
func (h *TicketsHandler) State(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(sess.Ticket.Snapshot()))
}
