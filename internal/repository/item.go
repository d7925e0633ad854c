package repository

import (
	"context"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// ItemFilter narrows an item listing.
type ItemFilter struct {
	Kind     models.ItemKind
	Category string
	AuthorID uint
	Sort     models.ItemSort
	Limit    int
	Offset   int
}

// ItemRepository stores posts and articles.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, ref models.ItemRef) (*models.Item, error)
	List(ctx context.Context, filter ItemFilter) ([]*models.Item, error)
	Count(ctx context.Context, kind models.ItemKind) (int64, error)
	Delete(ctx context.Context, ref models.ItemRef) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	if !item.Kind.Editorial() {
		return models.NewValidationError("items table holds posts and articles only")
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return translateError(err, "Item", item.Title)
	}
	cache.Invalidate(ctx, cache.DashboardKey)
	return nil
}

// GetByID returns the shared (viewer-independent) document for ref.
func (r *itemRepository) GetByID(ctx context.Context, ref models.ItemRef) (*models.Item, error) {
	if !ref.Kind.Editorial() {
		return nil, models.NewValidationError("items table holds posts and articles only")
	}
	var item models.Item
	err := cache.Aside(ctx, cache.ItemKey(ref), &item, cache.ItemTTL, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND kind = ?", ref.ID, ref.Kind).
			First(&item).Error
	})
	if err != nil {
		return nil, translateError(err, resourceName(ref), ref.ID)
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter) ([]*models.Item, error) {
	q := r.db.WithContext(ctx).Model(&models.Item{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.AuthorID != 0 {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	switch filter.Sort {
	case models.SortTop:
		q = q.Order("like_count DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}
	q = q.Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var items []*models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Count(ctx context.Context, kind models.ItemKind) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Item{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	err := q.Count(&n).Error
	return n, err
}

// Delete removes the item together with its reaction and comment ledgers.
func (r *itemRepository) Delete(ctx context.Context, ref models.ItemRef) error {
	if !ref.Kind.Editorial() {
		return models.NewValidationError("items table holds posts and articles only")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND kind = ?", ref.ID, ref.Kind).Delete(&models.Item{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError(resourceName(ref), ref.ID)
		}
		return deleteLedgers(tx, ref)
	})
	if err != nil {
		return translateError(err, resourceName(ref), ref.ID)
	}
	cache.InvalidateItem(ctx, ref)
	return nil
}

// deleteLedgers drops every reaction and comment attached to ref.
func deleteLedgers(tx *gorm.DB, ref models.ItemRef) error {
	if err := tx.Where("item_kind = ? AND item_id = ?", ref.Kind, ref.ID).
		Delete(&models.Reaction{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("item_kind = ? AND item_id = ?", ref.Kind, ref.ID).
		Delete(&models.Comment{}).Error
}
