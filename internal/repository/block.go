package repository

import (
	"context"

	"solcast/internal/models"

	"gorm.io/gorm"
)

// BlockRepository defines persistence operations for block edges.
type BlockRepository interface {
	Block(ctx context.Context, blockerID, blockedID uint) error
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	IsBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error)
	// BlockerIDsOf returns the IDs of every user who has blocked the given
	// user. The catalog excludes those users' streams from the viewer's feeds.
	BlockerIDsOf(ctx context.Context, userID uint) ([]uint, error)
	// BlockedIDs returns the IDs of every user the given user has blocked.
	BlockedIDs(ctx context.Context, userID uint) ([]uint, error)
}

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository returns a new BlockRepository implementation.
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return models.NewValidationError("Cannot block yourself")
	}
	block := models.Block{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.WithContext(ctx).Create(&block).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Already blocked, treat as success
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blockRepository) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blockRepository) IsBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *blockRepository) BlockerIDsOf(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ?", userID).
		Pluck("blocker_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *blockRepository) BlockedIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ?", userID).
		Pluck("blocked_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
