// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateVersion handles POST /api/v1/project/:id/version.
// Multipart form: "data" field with the version JSON plus its file parts.
func (s *Server) CreateVersion(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	var in service.InitialVersionInput
	parts, err := parseMultipartData(c, &in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	version, err := s.versionService.CreateVersion(ctx, caller, c.Params("id"), in, parts)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

// GetVersion handles GET /api/v1/version/:id
func (s *Server) GetVersion(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	version, err := s.versionService.GetVersion(ctx, caller, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(version)
}

// GetVersions handles GET /api/v1/versions?ids=...
func (s *Server) GetVersions(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	refs := parseIDList(c)
	if len(refs) == 0 {
		return models.RespondWithError(c, models.NewValidationError("ids query parameter is required"))
	}

	ids := make([]models.ID, 0, len(refs))
	for _, ref := range refs {
		id, err := models.ParseID(ref)
		if err != nil {
			return models.RespondWithError(c, models.NewValidationError("Invalid version id "+ref))
		}
		ids = append(ids, id)
	}

	versions, err := s.versionService.GetVersions(ctx, caller, ids)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(versions)
}

// GetProjectVersions handles GET /api/v1/project/:id/version?featured=true
func (s *Server) GetProjectVersions(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	featured := c.QueryBool("featured", false)

	versions, err := s.versionService.ListProjectVersions(ctx, caller, c.Params("id"), featured)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(versions)
}

// EditVersion handles PATCH /api/v1/version/:id
func (s *Server) EditVersion(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.EditVersionInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.versionService.EditVersion(ctx, caller, id, in); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteVersion handles DELETE /api/v1/version/:id
func (s *Server) DeleteVersion(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.versionService.DeleteVersion(ctx, caller, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AddVersionFile handles POST /api/v1/version/:id/file.
// Multipart form with exactly one file field.
func (s *Server) AddVersionFile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	parts, perr := parseMultipartFiles(c)
	if perr != nil {
		return models.RespondWithError(c, perr)
	}
	if len(parts) != 1 {
		return models.RespondWithError(c, models.NewValidationError("Exactly one file part is required"))
	}

	version, err := s.versionService.AddFile(ctx, caller, id, parts[0])
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

// GetVersionByHash handles GET /api/v1/version_file/:hash?algorithm=sha1
func (s *Server) GetVersionByHash(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	algo, err := hashAlgorithm(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	version, err := s.versionService.VersionByFileHash(ctx, caller, algo, c.Params("hash"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(version)
}

// DeleteFileByHash handles DELETE /api/v1/version_file/:hash?algorithm=sha1
func (s *Server) DeleteFileByHash(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := middleware.Caller(c)

	algo, err := hashAlgorithm(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.versionService.DeleteFileByHash(ctx, caller, algo, c.Params("hash")); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RecordDownload handles POST /api/v1/version/:id/download.
// Repeat downloads from the same requester within the dedup window do not
// bump counters, but the endpoint still answers 204.
func (s *Server) RecordDownload(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.versionService.RecordDownload(ctx, id, c.IP()); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
