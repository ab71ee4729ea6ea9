// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateProject handles POST /api/v1/project.
// The request is a multipart form: a "data" field with the project JSON and
// one file field per file_parts entry of each initial version.
func (s *Server) CreateProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	var in service.CreateProjectInput
	parts, err := parseMultipartData(c, &in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	project, err := s.projectService.CreateProject(ctx, caller, in, parts)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/v1/project/:id (base62 id or slug)
func (s *Server) GetProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	project, err := s.projectService.GetProject(ctx, caller, c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(project)
}

// GetProjects handles GET /api/v1/projects?ids=...
func (s *Server) GetProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	refs := parseIDList(c)
	if len(refs) == 0 {
		return models.RespondWithError(c, models.NewValidationError("ids query parameter is required"))
	}

	projects, err := s.projectService.GetProjects(ctx, caller, refs)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(projects)
}

// EditProject handles PATCH /api/v1/project/:id
func (s *Server) EditProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	var in service.EditProjectInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.projectService.EditProject(ctx, caller, c.Params("id"), in); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteProject handles DELETE /api/v1/project/:id
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	if err := s.projectService.DeleteProject(ctx, caller, c.Params("id")); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetProjectIcon handles PATCH /api/v1/project/:id/icon?ext=png.
// The raw request body is the image.
func (s *Server) SetProjectIcon(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	if err := s.projectService.SetIcon(ctx, caller, c.Params("id"), iconContentType(c), c.Body()); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// FollowProject handles POST /api/v1/project/:id/follow
func (s *Server) FollowProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	if err := s.projectService.FollowProject(ctx, caller, c.Params("id")); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UnfollowProject handles DELETE /api/v1/project/:id/follow
func (s *Server) UnfollowProject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	if err := s.projectService.UnfollowProject(ctx, caller, c.Params("id")); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetFollowedProjects handles GET /api/v1/user/follows
func (s *Server) GetFollowedProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	projects, err := s.projectService.ListFollowed(ctx, caller)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(projects)
}

// GetModerationProjects handles GET /api/v1/moderation/projects?status=processing
func (s *Server) GetModerationProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()

	status := models.ProjectStatus(c.Query("status", string(models.StatusProcessing)))
	page := parsePagination(c, 20)

	projects, err := s.projectService.ModerationList(ctx, status, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(projects)
}
