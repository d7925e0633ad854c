package repository

import (
	"context"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository stores product reviews and keeps each product's rating
// aggregate (sum and count of approved ratings) in step with them.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.ProductReview) error
	GetByID(ctx context.Context, id uint) (*models.ProductReview, error)
	ListApproved(ctx context.Context, productID uint, limit, offset int) ([]*models.ProductReview, error)
	Approve(ctx context.Context, id uint) (*models.ProductReview, error)
	Delete(ctx context.Context, id uint) (*models.ProductReview, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create inserts the review. An approved review is folded into the product
// aggregate by atomic increments in the same transaction.
func (r *reviewRepository) Create(ctx context.Context, review *models.ProductReview) error {
	if review.Status == "" {
		review.Status = models.ReviewStatusApproved
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := productMustExist(tx, review.ProductID); err != nil {
			return err
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		if review.Status == models.ReviewStatusApproved {
			return applyRating(tx, review.ProductID, review.Rating)
		}
		return nil
	})
	if err != nil {
		return translateError(err, "Review", review.ProductID)
	}
	cache.Invalidate(ctx, cache.ProductKey(review.ProductID))
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*models.ProductReview, error) {
	var review models.ProductReview
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, translateError(err, "Review", id)
	}
	return &review, nil
}

func (r *reviewRepository) ListApproved(ctx context.Context, productID uint, limit, offset int) ([]*models.ProductReview, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, models.ReviewStatusApproved).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var reviews []*models.ProductReview
	err := q.Find(&reviews).Error
	return reviews, err
}

// Approve promotes a pending review and applies its rating. Approving an
// already approved review changes nothing.
func (r *reviewRepository) Approve(ctx context.Context, id uint) (*models.ProductReview, error) {
	var review models.ProductReview
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ProductReview{}).
			Where("id = ? AND status = ?", id, models.ReviewStatusPending).
			Update("status", models.ReviewStatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.First(&review, id).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return applyRating(tx, review.ProductID, review.Rating)
	})
	if err != nil {
		return nil, translateError(err, "Review", id)
	}
	cache.Invalidate(ctx, cache.ProductKey(review.ProductID))
	return &review, nil
}

// Delete removes a review, withdrawing its rating if it had been counted.
func (r *reviewRepository) Delete(ctx context.Context, id uint) (*models.ProductReview, error) {
	var review models.ProductReview
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ProductReview{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || review.Status != models.ReviewStatusApproved {
			return nil
		}
		return withdrawRating(tx, review.ProductID, review.Rating)
	})
	if err != nil {
		return nil, translateError(err, "Review", id)
	}
	cache.Invalidate(ctx, cache.ProductKey(review.ProductID))
	return &review, nil
}

// applyRating adds one rating to the aggregate without reading it first.
func applyRating(tx *gorm.DB, productID uint, rating int) error {
	res := tx.Model(&models.Product{}).Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"rating_sum":   gorm.Expr("rating_sum + ?", rating),
			"rating_count": gorm.Expr("rating_count + ?", 1),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Product", productID)
	}
	return nil
}

func withdrawRating(tx *gorm.DB, productID uint, rating int) error {
	return tx.Model(&models.Product{}).Where("id = ? AND rating_count > 0", productID).
		UpdateColumns(map[string]any{
			"rating_sum":   gorm.Expr("rating_sum - ?", rating),
			"rating_count": gorm.Expr("rating_count - ?", 1),
		}).Error
}
