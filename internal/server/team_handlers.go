// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetTeamMembers handles GET /api/v1/team/:id/members
func (s *Server) GetTeamMembers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	members, err := s.teamService.GetMembers(ctx, caller, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(members)
}

// AddTeamMember handles POST /api/v1/team/:id/members
func (s *Server) AddTeamMember(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.AddMemberInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.teamService.AddMember(ctx, caller, id, in); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// EditTeamMember handles PATCH /api/v1/team/:id/members/:userId
func (s *Server) EditTeamMember(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	teamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var in service.EditMemberInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.teamService.EditMember(ctx, caller, teamID, userID, in); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveTeamMember handles DELETE /api/v1/team/:id/members/:userId
func (s *Server) RemoveTeamMember(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	teamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.teamService.RemoveMember(ctx, caller, teamID, userID); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// JoinTeam handles POST /api/v1/team/:id/join
func (s *Server) JoinTeam(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.teamService.JoinTeam(ctx, caller, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
