package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"solcast/internal/livekit"
	"solcast/internal/models"
	"solcast/internal/repository"
	"solcast/internal/validation"
)

// MediaProvisioner is the slice of the media server client the stream
// service needs.
type MediaProvisioner interface {
	CreateIngress(ctx context.Context, roomName, identity, name string) (*livekit.Ingress, error)
	BuildViewerToken(room, identity, name string) (string, error)
}

// StreamerOnboarding is the result of promoting a user to streamer: the
// created stream plus the ingest credentials to publish with.
type StreamerOnboarding struct {
	Stream    *models.Stream `json:"stream"`
	ServerURL string         `json:"server_url"`
	StreamKey string         `json:"stream_key"`
}

// StreamService manages stream records and the streamer lifecycle.
type StreamService struct {
	streams repository.StreamRepository
	users   repository.UserRepository
	media   MediaProvisioner
}

// NewStreamService returns a StreamService.
func NewStreamService(streams repository.StreamRepository, users repository.UserRepository, media MediaProvisioner) *StreamService {
	return &StreamService{streams: streams, users: users, media: media}
}

// BecomeStreamer provisions ingest for the user and creates their stream.
// The ingress is created first: if the media server refuses, no local state
// changes. Calling it again for an existing streamer returns the current
// stream and credentials without provisioning anything new.
func (s *StreamService) BecomeStreamer(ctx context.Context, userID uint) (*StreamerOnboarding, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.IsStreamer {
		stream, err := s.streams.GetStreamByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if stream != nil {
			return &StreamerOnboarding{
				Stream:    stream,
				ServerURL: user.ServerURL,
				StreamKey: user.StreamKey,
			}, nil
		}
		// Streamer flag without a stream record: fall through and repair.
	}

	room := strconv.FormatUint(uint64(user.ID), 10)
	ingress, err := s.media.CreateIngress(ctx, room, room, user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.users.PromoteToStreamer(ctx, user.ID, ingress.StreamKey, ingress.URL); err != nil {
		return nil, err
	}

	stream := &models.Stream{
		UserID: user.ID,
		Title:  "Stream de " + user.Username,
	}
	if err := s.streams.CreateStream(ctx, stream); err != nil {
		return nil, err
	}
	stream.User = *user

	return &StreamerOnboarding{
		Stream:    stream,
		ServerURL: ingress.URL,
		StreamKey: ingress.StreamKey,
	}, nil
}

// UpdateTitle changes the stream's title. Owner only.
func (s *StreamService) UpdateTitle(ctx context.Context, streamID, requesterID uint, title string) error {
	if err := validation.ValidateStreamTitle(title); err != nil {
		return models.NewValidationError(err.Error())
	}

	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return err
	}
	if stream.UserID != requesterID {
		return models.NewForbiddenError("Only the stream owner can change the title")
	}
	return s.streams.UpdateTitle(ctx, streamID, title)
}

// UpdateMyStream updates the title and/or thumbnail of the user's own stream.
// Nil fields are left untouched.
func (s *StreamService) UpdateMyStream(ctx context.Context, userID uint, title, thumbnailURL *string) (*models.Stream, error) {
	stream, err := s.streams.GetStreamByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, models.NewNotFoundError("Stream", userID)
	}

	if title != nil {
		if err := validation.ValidateStreamTitle(*title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		stream.Title = *title
	}
	if thumbnailURL != nil {
		stream.ThumbnailURL = *thumbnailURL
	}

	if err := s.streams.UpdateStream(ctx, stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// ViewerToken mints a media access token letting viewerID watch hostUserID's
// room. A host watching their own room gets the same join-only token.
func (s *StreamService) ViewerToken(ctx context.Context, viewerID, hostUserID uint) (string, error) {
	host, err := s.users.GetByID(ctx, hostUserID)
	if err != nil {
		return "", err
	}
	if !host.IsStreamer {
		return "", models.NewValidationError("User is not a streamer")
	}

	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return "", err
	}

	room := strconv.FormatUint(uint64(host.ID), 10)
	identity := strconv.FormatUint(uint64(viewer.ID), 10)
	return s.media.BuildViewerToken(room, identity, viewer.Username)
}

// AnonymousViewerToken mints a watch token for a viewer without an account,
// under a generated identity.
func (s *StreamService) AnonymousViewerToken(ctx context.Context, hostUserID uint) (string, error) {
	host, err := s.users.GetByID(ctx, hostUserID)
	if err != nil {
		return "", err
	}
	if !host.IsStreamer {
		return "", models.NewValidationError("User is not a streamer")
	}

	room := strconv.FormatUint(uint64(host.ID), 10)
	identity := fmt.Sprintf("viewer-%d", time.Now().UnixNano())
	return s.media.BuildViewerToken(room, identity, identity)
}
