package repository

import (
	"context"
	"errors"
	"time"

	"solcast/internal/cache"
	"solcast/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for chat messages and settings.
type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	// GetMessages returns the most recent limit messages of a stream in
	// chronological order.
	GetMessages(ctx context.Context, streamID uint, limit int) ([]*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageID uint) error
	ClearMessages(ctx context.Context, streamID uint) error
	// LastMessageTime returns the creation time of the user's most recent
	// message in the stream, or the zero time if there is none. Slow mode
	// checks against it.
	LastMessageTime(ctx context.Context, streamID, userID uint) (time.Time, error)
	GetSettings(ctx context.Context, streamID uint) (*models.ChatSettings, error)
	SaveSettings(ctx context.Context, settings *models.ChatSettings) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) GetMessages(ctx context.Context, streamID uint, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var messages []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Reverse to return chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) DeleteMessage(ctx context.Context, messageID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.ChatMessage{}, messageID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) ClearMessages(ctx context.Context, streamID uint) error {
	if err := r.db.WithContext(ctx).Where("stream_id = ?", streamID).Delete(&models.ChatMessage{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) LastMessageTime(ctx context.Context, streamID, userID uint) (time.Time, error) {
	var msg models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("stream_id = ? AND user_id = ?", streamID, userID).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, models.NewInternalError(err)
	}
	return msg.CreatedAt, nil
}

func (r *chatRepository) GetSettings(ctx context.Context, streamID uint) (*models.ChatSettings, error) {
	var settings models.ChatSettings
	key := cache.ChatSettingsKey(streamID)

	err := cache.CacheAside(ctx, key, &settings, cache.ChatSettingsTTL, func() error {
		if err := r.db.WithContext(ctx).Where("stream_id = ?", streamID).First(&settings).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				settings = *models.DefaultChatSettings(streamID)
				return nil
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *chatRepository) SaveSettings(ctx context.Context, settings *models.ChatSettings) error {
	var existing models.ChatSettings
	err := r.db.WithContext(ctx).Where("stream_id = ?", settings.StreamID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(settings).Error; err != nil {
			return models.NewInternalError(err)
		}
	case err != nil:
		return models.NewInternalError(err)
	default:
		settings.ID = existing.ID
		if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	cache.Invalidate(ctx, cache.ChatSettingsKey(settings.StreamID))
	return nil
}
