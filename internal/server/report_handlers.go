// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/v1/report
func (s *Server) CreateReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	var in service.CreateReportInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	report, err := s.reportService.CreateReport(ctx, caller, in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetReports handles GET /api/v1/report (moderator only)
func (s *Server) GetReports(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	page := parsePagination(c, 20)

	reports, err := s.reportService.ListReports(ctx, caller, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(reports)
}

// DeleteReport handles DELETE /api/v1/report/:id
func (s *Server) DeleteReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.reportService.DeleteReport(ctx, caller, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
