// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/Geometrically/fabricate/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/v1/tag/category
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.lookupRepo.ListCategories(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(categories)
}

// GetLoaders handles GET /api/v1/tag/loader
func (s *Server) GetLoaders(c *fiber.Ctx) error {
	loaders, err := s.lookupRepo.ListLoaders(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(loaders)
}

// GetGameVersions handles GET /api/v1/tag/game_version
func (s *Server) GetGameVersions(c *fiber.Ctx) error {
	gameVersions, err := s.lookupRepo.ListGameVersions(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(gameVersions)
}

// GetLicenses handles GET /api/v1/tag/license
func (s *Server) GetLicenses(c *fiber.Ctx) error {
	licenses, err := s.lookupRepo.ListLicenses(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(licenses)
}

// GetDonationPlatforms handles GET /api/v1/tag/donation_platform
func (s *Server) GetDonationPlatforms(c *fiber.Ctx) error {
	platforms, err := s.lookupRepo.ListDonationPlatforms(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(platforms)
}

// GetReportTypes handles GET /api/v1/tag/report_type
func (s *Server) GetReportTypes(c *fiber.Ctx) error {
	types, err := s.lookupRepo.ListReportTypes(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(types)
}
