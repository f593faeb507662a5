package server

import (
	"log/slog"
	"strconv"

	"solcast/internal/models"
	"solcast/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username     *string `json:"username"`
		Bio          *string `json:"bio"`
		AvatarURL    *string `json:"avatar_url"`
		ShowSponsors *bool   `json:"show_sponsors"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	if req.Username != nil && *req.Username != user.Username {
		if err := validation.ValidateUsername(*req.Username); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		taken, err := s.userRepo.GetByUsername(c.Context(), *req.Username)
		if err != nil {
			return respondServiceError(c, err)
		}
		if taken != nil {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewValidationError("Username is already taken"))
		}
		user.Username = *req.Username
	}
	if req.Bio != nil {
		if err := validation.ValidateBio(*req.Bio); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.ShowSponsors != nil {
		user.ShowSponsors = *req.ShowSponsors
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetChannel handles GET /api/users/:username — the channel page payload:
// the profile, the stream metadata, the follower count, and whether the
// channel is live right now according to the room directory.
func (s *Server) GetChannel(c *fiber.Ctx) error {
	username := c.Params("username")
	user, err := s.userRepo.GetByUsername(c.Context(), username)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", username))
	}

	// A viewer blocked by the channel owner does not see the channel.
	if viewerID := currentUserID(c); viewerID != 0 && viewerID != user.ID {
		blocked, err := s.blockRepo.IsBlocked(c.Context(), user.ID, viewerID)
		if err != nil {
			return respondServiceError(c, err)
		}
		if blocked {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("User", username))
		}
	}

	stream, err := s.streamRepo.GetStreamByUserID(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	followerCount, err := s.followRepo.CountFollowers(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	isLive := s.isLiveInDirectory(c, user.ID, stream)

	var following bool
	if viewerID := currentUserID(c); viewerID != 0 {
		following, err = s.followRepo.IsFollowing(c.Context(), viewerID, user.ID)
		if err != nil {
			return respondServiceError(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"user":           user,
		"stream":         stream,
		"follower_count": followerCount,
		"is_live":        isLive,
		"is_following":   following,
	})
}

// isLiveInDirectory checks the active-room directory for the user's room.
// When the directory is unreachable the stored hint is the best we have.
func (s *Server) isLiveInDirectory(c *fiber.Ctx, userID uint, stream *models.Stream) bool {
	rooms, err := s.media.ListActiveRooms(c.Context())
	if err != nil {
		slog.WarnContext(c.UserContext(), "room directory unavailable, using stored live hint",
			"user_id", userID, "error", err)
		return stream != nil && stream.IsLive
	}

	name := strconv.FormatUint(uint64(userID), 10)
	for _, room := range rooms {
		if room.Name == name {
			return true
		}
	}
	return false
}
