package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/pkg/jsend"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// TrackingHandler serves ticket tracking and rating.
type TrackingHandler struct {
	sessions *service.SessionService
}

// NewTrackingHandler constructs handler.
func NewTrackingHandler(sessions *service.SessionService) *TrackingHandler {
	return &TrackingHandler{sessions: sessions}
}

// Track GET /tickets/track/:code.
func (h *TrackingHandler) Track(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	detail, err := sess.Tracker.Track(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(detail))
}

// Rate POST /tickets/:id/rating.
func (h *TrackingHandler) Rate(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := sess.Tracker.Rate(c.UserContext(), c.Params("id"), req.Rating); err != nil {
		return err
	}
	return c.JSON(jsend.Success(fiber.Map{
		"ticketId": c.Params("id"),
		"rating":   req.Rating,
		"message":  sess.Printer.T("ui.rating_thanks"),
	}))
}

// History GET /tickets/history?phone=.
func (h *TrackingHandler) History(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	items, err := sess.Tracker.History(c.UserContext(), c.Query("phone"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(fiber.Map{"tickets": items}))
}
