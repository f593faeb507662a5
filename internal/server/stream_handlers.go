package server

import (
	"solcast/internal/models"

	"github.com/gofiber/fiber/v2"
)

// BecomeStreamer handles POST /api/become-streamer. Idempotent: an existing
// streamer gets their current stream and ingest credentials back.
func (s *Server) BecomeStreamer(c *fiber.Ctx) error {
	onboarding, err := s.streamService.BecomeStreamer(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(onboarding)
}

// UpdateMyStream handles PUT /api/streams/me
func (s *Server) UpdateMyStream(c *fiber.Ctx) error {
	var req struct {
		Title        *string `json:"title"`
		ThumbnailURL *string `json:"thumbnail_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Title == nil && req.ThumbnailURL == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Nothing to update"))
	}

	stream, err := s.streamService.UpdateMyStream(c.Context(), currentUserID(c), req.Title, req.ThumbnailURL)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stream)
}

// GetViewerToken handles GET /api/livekit/token?room=<hostUserID>. Signed-in
// viewers get a token under their own identity; anonymous viewers get a
// generated one.
func (s *Server) GetViewerToken(c *fiber.Ctx) error {
	hostID := c.QueryInt("room")
	if hostID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid room"))
	}

	var token string
	var err error
	if viewerID := currentUserID(c); viewerID != 0 {
		token, err = s.streamService.ViewerToken(c.Context(), viewerID, uint(hostID))
	} else {
		token, err = s.streamService.AnonymousViewerToken(c.Context(), uint(hostID))
	}
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}
