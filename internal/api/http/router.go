package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/http/handlers"
	"github.com/spec-kit/support-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Session     *handlers.SessionHandler
	Chat        *handlers.ChatHandler
	Tickets     *handlers.TicketsHandler
	Tracking    *handlers.TrackingHandler
	Attachments *handlers.AttachmentsHandler
	Catalog     *handlers.CatalogHandler
	Sessions    *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/session", cfg.Session.Create)

	protected := app.Group("", cfg.Sessions.Handle)
	protected.Get("/session", cfg.Session.Current)

	chat := protected.Group("/chat")
	chat.Post("/stream", cfg.Chat.Stream)
	chat.Delete("/stream", cfg.Chat.Close)
	chat.Post("/ask", cfg.Chat.Ask)
	chat.Get("/messages", cfg.Chat.Messages)
	chat.Post("/reset", cfg.Chat.Reset)

	protected.Get("/departments", cfg.Catalog.MainDepartments)
	protected.Get("/departments/:id/sub", cfg.Catalog.SubDepartments)
	protected.Get("/faqs", cfg.Catalog.FAQs)
	protected.Get("/faqs/:id", cfg.Catalog.FAQ)
	protected.Get("/promotion", cfg.Catalog.Promotion)

	tickets := protected.Group("/tickets")
	tickets.Post("/attachments", cfg.Tickets.StageAttachment)
	tickets.Delete("/attachments/:name", cfg.Tickets.UnstageAttachment)
	tickets.Post("", cfg.Tickets.Submit)
	tickets.Post("/verify", cfg.Tickets.Verify)
	tickets.Post("/cancel", cfg.Tickets.Cancel)
	tickets.Get("/state", cfg.Tickets.State)
	tickets.Get("/history", cfg.Tracking.History)
	tickets.Get("/track/:code", cfg.Tracking.Track)
	tickets.Post("/:id/rating", cfg.Tracking.Rate)

	protected.Get("/attachments/:token", cfg.Attachments.Preview)
}
