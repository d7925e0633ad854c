package repository

import (
	"context"
	"log/slog"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByItem(ctx context.Context, ref models.ItemRef) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) (*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps the item's comment_count in the same
// transaction. A missing item yields NOT_FOUND and nothing is written.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	ref := comment.Ref()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := incrementCounter(tx, ref, commentCountColumn); err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return translateError(err, "Comment", ref)
	}
	cache.InvalidateItem(ctx, ref)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translateError(err, "Comment", id)
	}
	return &comment, nil
}

// ListByItem returns every live comment of ref, oldest first.
func (r *commentRepository) ListByItem(ctx context.Context, ref models.ItemRef) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("item_kind = ? AND item_id = ?", ref.Kind, ref.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

// Delete soft-deletes one comment and decrements its item's count. Replies
// are left in place.
func (r *commentRepository) Delete(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		err := decrementCounter(tx, comment.Ref(), commentCountColumn)
		if models.IsNotFound(err) {
			slog.WarnContext(ctx, "comment deleted from missing item",
				slog.Uint64("comment_id", uint64(comment.ID)),
				slog.String("item", comment.Ref().String()))
			return nil
		}
		return err
	})
	if err != nil {
		return nil, translateError(err, "Comment", id)
	}
	cache.InvalidateItem(ctx, comment.Ref())
	return &comment, nil
}
