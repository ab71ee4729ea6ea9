// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUser handles GET /api/v1/user/:id (base62 id or username)
func (s *Server) GetUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	user, err := s.userService.GetUser(ctx, caller, c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(user)
}

// GetCurrentUser handles GET /api/v1/user (the caller's own profile)
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	user, err := s.userService.GetCurrentUser(ctx, caller)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(user)
}

// GetUsers handles GET /api/v1/users?ids=[...]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()

	refs := parseIDList(c)
	if len(refs) == 0 {
		return models.RespondWithError(c, models.NewValidationError("ids query parameter is required"))
	}
	ids := make([]models.ID, 0, len(refs))
	for _, ref := range refs {
		id, err := models.ParseID(ref)
		if err != nil {
			return models.RespondWithError(c, models.NewValidationError("Invalid user id "+ref))
		}
		ids = append(ids, id)
	}

	users, err := s.userService.GetUsers(ctx, ids)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(users)
}

// EditUser handles PATCH /api/v1/user/:id
func (s *Server) EditUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	var in service.EditUserInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.EditUser(ctx, caller, c.Params("id"), in); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserProjects handles GET /api/v1/user/:id/projects
func (s *Server) GetUserProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	projects, err := s.userService.ListUserProjects(ctx, caller, c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(projects)
}

// GetUserTeams handles GET /api/v1/user/:id/teams
func (s *Server) GetUserTeams(c *fiber.Ctx) error {
	ctx := c.UserContext()

	teams, err := s.userService.ListUserTeams(ctx, c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(teams)
}
