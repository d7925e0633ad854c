package repository

import (
	"context"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository owns the like ledger and the like_count it drives.
type ReactionRepository interface {
	Toggle(ctx context.Context, ref models.ItemRef, userID uint) (models.ReactionState, error)
	Exists(ctx context.Context, ref models.ItemRef, userID uint) (bool, error)
	LikedIDs(ctx context.Context, kind models.ItemKind, userID uint, ids []uint) ([]uint, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle flips the user's reaction on ref. The ledger row and the counter
// move in one transaction, and the insert is ON CONFLICT DO NOTHING so a
// duplicate request racing this one cannot count twice.
func (r *reactionRepository) Toggle(ctx context.Context, ref models.ItemRef, userID uint) (models.ReactionState, error) {
	state := models.ReactionState{Item: ref}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := itemExists(tx, ref)
		if err != nil {
			return err
		}
		if !exists {
			return models.NewNotFoundError(resourceName(ref), ref.ID)
		}

		res := tx.Where("item_kind = ? AND item_id = ? AND user_id = ?", ref.Kind, ref.ID, userID).
			Delete(&models.Reaction{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := decrementCounter(tx, ref, likeCountColumn); err != nil {
				return err
			}
			state.Liked = false
		} else {
			reaction := models.Reaction{ItemKind: ref.Kind, ItemID: ref.ID, UserID: userID}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction)
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected > 0 {
				if err := incrementCounter(tx, ref, likeCountColumn); err != nil {
					return err
				}
			}
			state.Liked = true
		}

		count, err := readCounter(tx, ref, likeCountColumn)
		if err != nil {
			return err
		}
		state.LikeCount = count
		return nil
	})
	if err != nil {
		return models.ReactionState{}, translateError(err, resourceName(ref), ref.ID)
	}
	cache.InvalidateItem(ctx, ref)
	return state, nil
}

func (r *reactionRepository) Exists(ctx context.Context, ref models.ItemRef, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("item_kind = ? AND item_id = ? AND user_id = ?", ref.Kind, ref.ID, userID).
		Count(&n).Error
	return n > 0, err
}

// LikedIDs returns the subset of ids the user has reacted to.
func (r *reactionRepository) LikedIDs(ctx context.Context, kind models.ItemKind, userID uint, ids []uint) ([]uint, error) {
	if userID == 0 || len(ids) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("item_kind = ? AND user_id = ? AND item_id IN ?", kind, userID, ids).
		Pluck("item_id", &liked).Error
	return liked, err
}
