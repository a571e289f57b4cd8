package handlers

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/chat"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/internal/stream"
	"github.com/spec-kit/support-portal/pkg/jsend"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// ChatHandler exposes the chat widget of a session.
type ChatHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewChatHandler constructs handler.
func NewChatHandler(sessions *service.SessionService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{sessions: sessions, logger: logger}
}

// Stream POST /chat/stream. The reply is re-emitted frame by frame in the
// backend's wire format. Failures become an error frame; a done frame always ends the body.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return chat.ErrEmptyQuestion
	}
	if sess.Chat.Busy() {
		return chat.ErrBusy
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(zap.String("session_id", sess.ID))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		broken := false
		write := func(frame domain.StreamFrame) {
			if broken {
				return
			}
			line, err := stream.EncodeFrame(frame)
			if err != nil {
				logger.Warn("encode frame failed", zap.Error(err))
				return
			}
			if _, err := w.Write(line); err == nil {
				err = w.Flush()
				if err == nil {
					return
				}
			}
			broken = true
			logger.Debug("chat client went away")
			sess.Chat.Close()
		}

		_, err := sess.Chat.Send(context.Background(), question, func(frame domain.StreamFrame, _ string) {
			if frame.Type != domain.FrameDone {
				write(frame)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			write(domain.StreamFrame{Type: domain.FrameError, Text: sess.Printer.Describe(err)})
		}
		write(domain.StreamFrame{Type: domain.FrameDone})
	})
	return nil
}

// Close DELETE /chat/stream cancels the reply in flight.
func (h *ChatHandler) Close(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	sess.Chat.Close()
	return c.JSON(jsend.Success(fiber.Map{"closed": true}))
}

// Ask POST /chat/ask runs a turn without streaming.
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := sess.Chat.Ask(c.UserContext(), req.Question, req.FAQID)
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(dto.ChatReplyResponse{Message: reply.Message, ConversationID: reply.ConversationID}))
}

// Messages GET /chat/messages.
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	msgs, err := h.sessions.Transcript(c.UserContext(), sess, c.QueryInt("limit", 200))
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return c.JSON(jsend.Success(dto.ChatLogResponse{
		ConversationID: sess.Chat.ConversationID(),
		Loading:        sess.Chat.Loading(),
		Partial:        sess.Chat.Partial(),
		Messages:       msgs,
	}))
}

// Reset POST /chat/reset starts a new conversation.
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	if err := h.sessions.ResetChat(c.UserContext(), sess); err != nil {
		return err
	}
	return c.JSON(jsend.Success(fiber.Map{"reset": true}))
}
