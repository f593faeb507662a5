package repository

import (
	"context"
	"errors"

	"solcast/internal/cache"
	"solcast/internal/models"

	"gorm.io/gorm"
)

// StreamRepository defines the interface for stream data operations
type StreamRepository interface {
	CreateStream(ctx context.Context, stream *models.Stream) error
	GetStreamByID(ctx context.Context, id uint) (*models.Stream, error)
	GetStreamByUserID(ctx context.Context, userID uint) (*models.Stream, error)
	// GetStreamsByUserIDs fetches the streams owned by the given users, owner
	// preloaded. The catalog joins the active-room directory against this.
	GetStreamsByUserIDs(ctx context.Context, userIDs []uint) ([]*models.Stream, error)
	UpdateStream(ctx context.Context, stream *models.Stream) error
	UpdateTitle(ctx context.Context, streamID uint, title string) error
	SetLiveHint(ctx context.Context, streamID uint, isLive bool) error
	DeleteStream(ctx context.Context, id uint) error
}

// streamRepository implements StreamRepository
type streamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a new stream repository
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &streamRepository{db: db}
}

func (r *streamRepository) CreateStream(ctx context.Context, stream *models.Stream) error {
	if err := r.db.WithContext(ctx).Create(stream).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already has a stream")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *streamRepository) GetStreamByID(ctx context.Context, id uint) (*models.Stream, error) {
	var stream models.Stream
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&stream, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Stream", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &stream, nil
}

func (r *streamRepository) GetStreamByUserID(ctx context.Context, userID uint) (*models.Stream, error) {
	var stream models.Stream
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("User").
		First(&stream).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &stream, nil
}

func (r *streamRepository) GetStreamsByUserIDs(ctx context.Context, userIDs []uint) ([]*models.Stream, error) {
	if len(userIDs) == 0 {
		return []*models.Stream{}, nil
	}
	var streams []*models.Stream
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Preload("User").
		Order("updated_at DESC").
		Find(&streams).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return streams, nil
}

func (r *streamRepository) UpdateStream(ctx context.Context, stream *models.Stream) error {
	if err := r.db.WithContext(ctx).Save(stream).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateStream(ctx, stream.ID)
	// Title changes shift the category tally.
	cache.InvalidateCatalog(ctx)
	return nil
}

func (r *streamRepository) UpdateTitle(ctx context.Context, streamID uint, title string) error {
	err := r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ?", streamID).
		Update("title", title).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateStream(ctx, streamID)
	cache.InvalidateCatalog(ctx)
	return nil
}

func (r *streamRepository) SetLiveHint(ctx context.Context, streamID uint, isLive bool) error {
	err := r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ?", streamID).
		Update("is_live", isLive).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateStream(ctx, streamID)
	return nil
}

func (r *streamRepository) DeleteStream(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Stream{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateStream(ctx, id)
	return nil
}
