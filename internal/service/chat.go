package service

import (
	"context"
	"strconv"
	"time"

	"solcast/internal/models"
	"solcast/internal/observability"
	"solcast/internal/repository"
	"solcast/internal/validation"
)

// ChatFeed is one poll result: the visible messages with sender flags
// resolved, plus whether the requesting viewer may send right now.
type ChatFeed struct {
	Messages []models.ChatMessageView `json:"messages"`
	Settings *models.ChatSettings     `json:"settings"`
	CanChat  bool                     `json:"can_chat"`
}

// ChatService implements the chat read/write rules for a stream.
type ChatService struct {
	chats    repository.ChatRepository
	streams  repository.StreamRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	blocks   repository.BlockRepository
	solcitos repository.SolcitoRepository
}

// NewChatService returns a ChatService over the given repositories.
func NewChatService(chats repository.ChatRepository, streams repository.StreamRepository, users repository.UserRepository, follows repository.FollowRepository, blocks repository.BlockRepository, solcitos repository.SolcitoRepository) *ChatService {
	return &ChatService{chats: chats, streams: streams, users: users, follows: follows, blocks: blocks, solcitos: solcitos}
}

// canChat decides whether viewerID may send to the stream right now.
// The owner can always chat, even with chat disabled.
func (s *ChatService) canChat(settings *models.ChatSettings, ownerID, viewerID uint) bool {
	if viewerID == ownerID {
		return true
	}
	return settings.Enabled
}

// GetFeed returns the recent messages of a stream with role flags resolved at
// read time, plus the current settings. viewerID may be zero for anonymous
// viewers; they can read but never chat.
func (s *ChatService) GetFeed(ctx context.Context, streamID, viewerID uint, limit int) (*ChatFeed, error) {
	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, err
	}

	settings, err := s.chats.GetSettings(ctx, streamID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.GetMessages(ctx, streamID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]models.ChatMessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, models.ChatMessageView{
			ChatMessage: *msg,
			IsStreamer:  msg.UserID == stream.UserID,
			IsPrime:     msg.User.IsPrime,
		})
	}

	canChat := viewerID != 0 && s.canChat(settings, stream.UserID, viewerID)
	return &ChatFeed{Messages: views, Settings: settings, CanChat: canChat}, nil
}

// SendMessage validates and stores a chat message, applying the stream's chat
// rules. A positive solcitos amount rides along as a gift to the stream owner
// and is transferred before the message is stored.
func (s *ChatService) SendMessage(ctx context.Context, streamID, senderID uint, text string, solcitos int64) (*models.ChatMessage, error) {
	if err := validation.ValidateChatMessage(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	isOwner := senderID == stream.UserID
	if !isOwner {
		blocked, err := s.blocks.IsBlocked(ctx, stream.UserID, senderID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewForbiddenError("You cannot chat in this stream")
		}

		settings, err := s.chats.GetSettings(ctx, streamID)
		if err != nil {
			return nil, err
		}
		if !settings.Enabled {
			return nil, models.NewForbiddenError("Chat is disabled")
		}
		if settings.FollowersOnly {
			following, err := s.follows.IsFollowing(ctx, senderID, stream.UserID)
			if err != nil {
				return nil, err
			}
			if !following {
				return nil, models.NewForbiddenError("Chat is restricted to followers")
			}
		}
		if settings.SlowModeSeconds > 0 {
			last, err := s.chats.LastMessageTime(ctx, streamID, senderID)
			if err != nil {
				return nil, err
			}
			wait := time.Duration(settings.SlowModeSeconds) * time.Second
			if !last.IsZero() && time.Since(last) < wait {
				return nil, models.NewValidationError("Slow mode is on, wait before sending again")
			}
		}
	}

	if solcitos > 0 {
		if _, err := s.solcitos.Gift(ctx, senderID, stream.UserID, solcitos); err != nil {
			return nil, err
		}
		observability.GiftsTotal.Inc()
	}

	msg := &models.ChatMessage{
		StreamID:  streamID,
		UserID:    senderID,
		Username:  sender.Username,
		AvatarURL: sender.AvatarURL,
		Text:      text,
		Solcitos:  solcitos,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	observability.ChatMessagesTotal.WithLabelValues(strconv.FormatUint(uint64(streamID), 10)).Inc()
	return msg, nil
}

// UpdateSettings replaces the stream's chat settings. Owner only.
func (s *ChatService) UpdateSettings(ctx context.Context, streamID, requesterID uint, settings *models.ChatSettings) (*models.ChatSettings, error) {
	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if stream.UserID != requesterID {
		return nil, models.NewForbiddenError("Only the stream owner can change chat settings")
	}
	if settings.SlowModeSeconds < 0 {
		return nil, models.NewValidationError("Slow mode seconds cannot be negative")
	}

	settings.StreamID = streamID
	if err := s.chats.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ClearMessages wipes the stream's chat history. Owner only.
func (s *ChatService) ClearMessages(ctx context.Context, streamID, requesterID uint) error {
	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return err
	}
	if stream.UserID != requesterID {
		return models.NewForbiddenError("Only the stream owner can clear the chat")
	}
	return s.chats.ClearMessages(ctx, streamID)
}

// DeleteMessage removes a message from the stream's chat. Owner only.
func (s *ChatService) DeleteMessage(ctx context.Context, streamID, requesterID, messageID uint) error {
	stream, err := s.streams.GetStreamByID(ctx, streamID)
	if err != nil {
		return err
	}
	if stream.UserID != requesterID {
		return models.NewForbiddenError("Only the stream owner can delete messages")
	}
	return s.chats.DeleteMessage(ctx, messageID)
}
