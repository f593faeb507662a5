package server

import (
	"net/url"

	"solcast/internal/featureflags"
	"solcast/internal/models"
	"solcast/internal/service"

	"github.com/gofiber/fiber/v2"
)

// sectionJSON renders a feed section. Failed sections carry an explicit error
// marker so clients can tell "nothing live" apart from "could not load".
func sectionJSON(sec service.FeedSection) fiber.Map {
	if sec.Err != nil {
		return fiber.Map{"error": "unavailable"}
	}
	return fiber.Map{"streams": sec.Streams}
}

// GetCatalog handles GET /api/catalog. Sections are built independently: a
// directory or DB failure degrades only the sections that need it.
func (s *Server) GetCatalog(c *fiber.Ctx) error {
	viewerID := currentUserID(c)

	payload := fiber.Map{
		"streams": sectionJSON(s.catalogService.LiveStreams(c.Context(), viewerID)),
	}

	if viewerID != 0 {
		payload["following"] = sectionJSON(s.catalogService.LiveFollowing(c.Context(), viewerID))
		payload["not_followed"] = sectionJSON(s.catalogService.LiveNotFollowed(c.Context(), viewerID))
	} else {
		payload["following"] = fiber.Map{"streams": []models.LiveStream{}}
		payload["not_followed"] = sectionJSON(s.catalogService.LiveStreams(c.Context(), 0))
	}

	if s.featureFlags.Enabled(featureflags.TopCategories, viewerID) {
		categories, err := s.catalogService.TopCategories(c.Context())
		if err != nil {
			payload["categories"] = fiber.Map{"error": "unavailable"}
		} else {
			payload["categories"] = categories
		}
	}

	return c.JSON(payload)
}

// GetCategories handles GET /api/catalog/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.catalogService.TopCategories(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetCategoryByName handles GET /api/catalog/categories/:name
func (s *Server) GetCategoryByName(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Category name is required"))
	}

	streams, err := s.catalogService.StreamsByCategory(c.Context(), name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"name":    name,
		"streams": streams,
	})
}
