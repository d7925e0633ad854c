package repository

import (
	"context"
	"strings"
	"time"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// ProductFilter narrows a product listing. A nil Verified returns both.
type ProductFilter struct {
	Verified *bool
	Category string
	Query    string
	// OldestFirst orders by submission time ascending.
	OldestFirst bool
	Limit       int
	Offset      int
}

// ProductRepository stores catalog products and their verification state.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	Count(ctx context.Context, verified *bool) (int64, error)
	Verify(ctx context.Context, id, moderatorID uint, note string) (bool, error)
	DeleteUnverified(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	// Submissions always start unverified with an empty aggregate.
	product.IsVerified = false
	product.VerifiedAt = nil
	product.VerifiedBy = nil
	product.RatingSum = 0
	product.RatingCount = 0
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return translateError(err, "Product", product.Name)
	}
	product.ComputeAverage()
	cache.Invalidate(ctx, cache.DashboardKey)
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := cache.Aside(ctx, cache.ProductKey(id), &product, cache.ProductTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
			First(&product, id).Error
	})
	if err != nil {
		return nil, translateError(err, "Product", id)
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Verified != nil {
		q = q.Where("is_verified = ?", *filter.Verified)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ?", like, like)
	}
	if filter.OldestFirst {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var products []*models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context, verified *bool) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if verified != nil {
		q = q.Where("is_verified = ?", *verified)
	}
	err := q.Count(&n).Error
	return n, err
}

// Verify promotes an unverified product and appends the moderator's
// annotation. The update is conditional on is_verified = false, so only the
// first of several concurrent approvals reports changed = true and writes an
// annotation.
func (r *productRepository) Verify(ctx context.Context, id, moderatorID uint, note string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.Product{}).
			Where("id = ? AND is_verified = ?", id, false).
			Updates(map[string]any{
				"is_verified": true,
				"verified_at": now,
				"verified_by": moderatorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return productMustExist(tx, id)
		}
		changed = true
		return tx.Create(&models.ProductAnnotation{
			ProductID:   id,
			ModeratorID: moderatorID,
			Note:        note,
		}).Error
	})
	if err != nil {
		return false, translateError(err, "Product", id)
	}
	if changed {
		cache.Invalidate(ctx, cache.ProductKey(id), cache.DashboardKey)
	}
	return changed, nil
}

// DeleteUnverified removes a product that has not been verified. A verified
// product is a CONFLICT; a missing one is NOT_FOUND.
func (r *productRepository) DeleteUnverified(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Children go first; a failed conditional delete rolls them back.
		if err := deleteProductChildren(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ? AND is_verified = ?", id, false).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := productMustExist(tx, id); err != nil {
				return err
			}
			return models.NewConflictError("verified products cannot be rejected")
		}
		return nil
	})
	if err != nil {
		return translateError(err, "Product", id)
	}
	cache.Invalidate(ctx, cache.ProductKey(id), cache.DashboardKey)
	return nil
}

// Delete removes a product regardless of state. Moderation uses it to take
// down reported products.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteProductChildren(tx, id); err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Product", id)
		}
		return nil
	})
	if err != nil {
		return translateError(err, "Product", id)
	}
	cache.Invalidate(ctx, cache.ProductKey(id), cache.DashboardKey)
	return nil
}

func productMustExist(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFoundError("Product", id)
	}
	return nil
}

func deleteProductChildren(tx *gorm.DB, id uint) error {
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductAnnotation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductReview{}).Error; err != nil {
		return err
	}
	return deleteLedgers(tx, models.ItemRef{Kind: models.ItemKindProduct, ID: id})
}
