package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/pkg/jsend"
)

// CatalogHandler lists departments and FAQs.
type CatalogHandler struct {
	client   *backend.Client
	sessions *service.SessionService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(client *backend.Client, sessions *service.SessionService) *CatalogHandler {
	return &CatalogHandler{client: client, sessions: sessions}
}

// MainDepartments GET /departments.
func (h *CatalogHandler) MainDepartments(c *fiber.Ctx) error {
	departments, err := h.client.ListMainDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(departments))
}

// SubDepartments GET /departments/:id/sub.
func (h *CatalogHandler) SubDepartments(c *fiber.Ctx) error {
	departments, err := h.client.ListSubDepartments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(departments))
}

// FAQs GET /faqs?departmentId=.
func (h *CatalogHandler) FAQs(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	page, err := h.sessions.FAQs(c.UserContext(), sess, c.Query("departmentId"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(page))
}

// FAQ GET /faqs/:id.
func (h *CatalogHandler) FAQ(c *fiber.Ctx) error {
	faq, err := h.client.GetFAQ(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(faq))
}

// Promotion GET /promotion. The promotion is null outside its window.
func (h *CatalogHandler) Promotion(c *fiber.Ctx) error {
	sess, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(jsend.Success(fiber.Map{"promotion": h.sessions.Promotion(c.UserContext(), sess)}))
}
