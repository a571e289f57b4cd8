package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/pkg/jsend"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// currentSession loads the session named by the request's token.
func currentSession(c *fiber.Ctx, sessions *service.SessionService) (*service.Session, error) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("session required")
	}
	return sessions.Get(c.UserContext(), claims.SessionID)
}

// SessionHandler issues portal sessions.
type SessionHandler struct {
	sessions   *service.SessionService
	cookieName string
	secure     bool
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, cookieName string, secure bool) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookieName: cookieName, secure: secure}
}

// Create POST /session.
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	issued, err := h.sessions.Create(c.UserContext(), domain.Guest{
		ID:    req.GuestID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, c.Get(fiber.HeaderAcceptLanguage))
	if err != nil {
		return err
	}

	if h.cookieName != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookieName,
			Value:    issued.Token,
			Expires:  issued.ExpiresAt,
			HTTPOnly: true,
			Secure:   h.secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(jsend.Success(dto.SessionResponse{
		SessionID: issued.Session.ID,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Language:  issued.Session.Language,
	}))
}

// Current GET /session.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(fiber.Map{
		"sessionId": sess.ID,
		"language":  sess.Language,
		"guest":     sess.Guest.Get(),
		"createdAt": sess.CreatedAt,
	}))
}
