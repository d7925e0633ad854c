package repository

import (
	"context"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// CounterDrift records one denormalized value that disagreed with its ledger.
type CounterDrift struct {
	Ref     models.ItemRef `json:"item"`
	Counter string         `json:"counter"`
	Cached  int64          `json:"cached"`
	Ledger  int64          `json:"ledger"`
}

// CounterRepository recounts denormalized counters from their ledgers.
type CounterRepository interface {
	ItemRefs(ctx context.Context, afterID uint, limit int) ([]models.ItemRef, error)
	ProductIDs(ctx context.Context, afterID uint, limit int) ([]uint, error)
	RecountItem(ctx context.Context, ref models.ItemRef) ([]CounterDrift, error)
	RecountRatings(ctx context.Context, productID uint) ([]CounterDrift, error)
}

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// ItemRefs pages through posts and articles by id.
func (r *counterRepository) ItemRefs(ctx context.Context, afterID uint, limit int) ([]models.ItemRef, error) {
	var rows []struct {
		ID   uint
		Kind models.ItemKind
	}
	err := r.db.WithContext(ctx).Model(&models.Item{}).
		Select("id", "kind").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	refs := make([]models.ItemRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, models.ItemRef{Kind: row.Kind, ID: row.ID})
	}
	return refs, nil
}

func (r *counterRepository) ProductIDs(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// RecountItem overwrites like_count and comment_count of ref (any kind) with
// the live ledger counts when they differ.
func (r *counterRepository) RecountItem(ctx context.Context, ref models.ItemRef) ([]CounterDrift, error) {
	var drifts []CounterDrift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var likes, comments int64
		if err := tx.Model(&models.Reaction{}).
			Where("item_kind = ? AND item_id = ?", ref.Kind, ref.ID).
			Count(&likes).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).
			Where("item_kind = ? AND item_id = ?", ref.Kind, ref.ID).
			Count(&comments).Error; err != nil {
			return err
		}

		for _, c := range []struct {
			column string
			ledger int64
		}{
			{likeCountColumn, likes},
			{commentCountColumn, comments},
		} {
			cached, err := readCounter(tx, ref, c.column)
			if err != nil {
				return err
			}
			if int64(cached) == c.ledger {
				continue
			}
			scope, err := counterScope(tx, ref)
			if err != nil {
				return err
			}
			if err := scope.UpdateColumn(c.column, c.ledger).Error; err != nil {
				return err
			}
			drifts = append(drifts, CounterDrift{Ref: ref, Counter: c.column, Cached: int64(cached), Ledger: c.ledger})
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err, resourceName(ref), ref.ID)
	}
	if len(drifts) > 0 {
		cache.InvalidateItem(ctx, ref)
	}
	return drifts, nil
}

// RecountRatings rebuilds rating_sum and rating_count from approved reviews.
func (r *counterRepository) RecountRatings(ctx context.Context, productID uint) ([]CounterDrift, error) {
	ref := models.ItemRef{Kind: models.ItemKindProduct, ID: productID}
	var drifts []CounterDrift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id", "rating_sum", "rating_count").First(&product, productID).Error; err != nil {
			return err
		}
		var ledger struct {
			Sum   int64
			Count int64
		}
		if err := tx.Model(&models.ProductReview{}).
			Select("COALESCE(SUM(rating), 0) AS sum, COUNT(*) AS count").
			Where("product_id = ? AND status = ?", productID, models.ReviewStatusApproved).
			Scan(&ledger).Error; err != nil {
			return err
		}
		if product.RatingSum == ledger.Sum && product.RatingCount == ledger.Count {
			return nil
		}
		if product.RatingSum != ledger.Sum {
			drifts = append(drifts, CounterDrift{Ref: ref, Counter: "rating_sum", Cached: product.RatingSum, Ledger: ledger.Sum})
		}
		if product.RatingCount != ledger.Count {
			drifts = append(drifts, CounterDrift{Ref: ref, Counter: "rating_count", Cached: product.RatingCount, Ledger: ledger.Count})
		}
		return tx.Model(&models.Product{}).Where("id = ?", productID).
			UpdateColumns(map[string]any{"rating_sum": ledger.Sum, "rating_count": ledger.Count}).Error
	})
	if err != nil {
		return nil, translateError(err, "Product", productID)
	}
	if len(drifts) > 0 {
		cache.Invalidate(ctx, cache.ProductKey(productID))
	}
	return drifts, nil
}
