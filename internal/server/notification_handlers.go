// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/v1/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	notifications, err := s.notificationService.List(ctx, caller)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(notifications)
}

// GetNotification handles GET /api/v1/notification/:id
func (s *Server) GetNotification(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	notification, err := s.notificationService.Get(ctx, caller, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(notification)
}

// MarkNotificationRead handles PATCH /api/v1/notification/:id
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.MarkRead(ctx, caller, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteNotification handles DELETE /api/v1/notification/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.Delete(ctx, caller, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
