package server

import (
	"solcast/internal/featureflags"
	"solcast/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetChatFeed handles GET /api/streams/:id/chat. Clients poll this every
// couple of seconds; the payload carries messages in chronological order, the
// chat settings, and whether the requesting viewer may send.
func (s *Server) GetChatFeed(c *fiber.Ctx) error {
	streamID, err := s.parseID(c, "id", "stream ID")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	feed, svcErr := s.chatService.GetFeed(c.Context(), streamID, currentUserID(c), p.Limit)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(feed)
}

// SendChatMessage handles POST /api/streams/:id/chat
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	streamID, err := s.parseID(c, "id", "stream ID")
	if err != nil {
		return nil
	}

	var req struct {
		Text     string `json:"message"`
		Solcitos int64  `json:"solcitos"`
	}
	if bodyErr := c.BodyParser(&req); bodyErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Solcitos < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Gift amount cannot be negative"))
	}

	senderID := currentUserID(c)
	if req.Solcitos > 0 && !s.featureFlags.Enabled(featureflags.GiftMessages, senderID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Gifts are currently disabled"))
	}

	msg, svcErr := s.chatService.SendMessage(c.Context(), streamID, senderID, req.Text, req.Solcitos)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// DeleteChatMessage handles DELETE /api/streams/:id/chat/messages/:messageId
func (s *Server) DeleteChatMessage(c *fiber.Ctx) error {
	streamID, err := s.parseID(c, "id", "stream ID")
	if err != nil {
		return nil
	}
	messageID, err := s.parseID(c, "messageId", "message ID")
	if err != nil {
		return nil
	}

	if svcErr := s.chatService.DeleteMessage(c.Context(), streamID, currentUserID(c), messageID); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearChat handles DELETE /api/streams/:id/chat
func (s *Server) ClearChat(c *fiber.Ctx) error {
	streamID, err := s.parseID(c, "id", "stream ID")
	if err != nil {
		return nil
	}

	if svcErr := s.chatService.ClearMessages(c.Context(), streamID, currentUserID(c)); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateChatSettings handles PATCH /api/streams/:id/chat/settings
func (s *Server) UpdateChatSettings(c *fiber.Ctx) error {
	streamID, err := s.parseID(c, "id", "stream ID")
	if err != nil {
		return nil
	}

	var req models.ChatSettings
	if bodyErr := c.BodyParser(&req); bodyErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	settings, svcErr := s.chatService.UpdateSettings(c.Context(), streamID, currentUserID(c), &req)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(settings)
}
