package repository

import (
	"fmt"

	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// Counter columns shared by items and products.
const (
	likeCountColumn    = "like_count"
	commentCountColumn = "comment_count"
)

// counterScope targets the row holding ref's denormalized counters.
func counterScope(tx *gorm.DB, ref models.ItemRef) (*gorm.DB, error) {
	switch {
	case ref.Kind == models.ItemKindProduct:
		return tx.Model(&models.Product{}).Where("id = ?", ref.ID), nil
	case ref.Kind.Editorial():
		return tx.Model(&models.Item{}).Where("id = ? AND kind = ?", ref.ID, ref.Kind), nil
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown item kind %q", ref.Kind))
	}
}

func resourceName(ref models.ItemRef) string {
	switch ref.Kind {
	case models.ItemKindProduct:
		return "Product"
	case models.ItemKindArticle:
		return "Article"
	default:
		return "Post"
	}
}

// incrementCounter adds one to column. It doubles as the existence check:
// zero rows affected means the item is gone.
func incrementCounter(tx *gorm.DB, ref models.ItemRef, column string) error {
	scope, err := counterScope(tx, ref)
	if err != nil {
		return err
	}
	res := scope.UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resourceName(ref), ref.ID)
	}
	return nil
}

// decrementCounter subtracts one from column, clamped at zero.
func decrementCounter(tx *gorm.DB, ref models.ItemRef, column string) error {
	scope, err := counterScope(tx, ref)
	if err != nil {
		return err
	}
	res := scope.UpdateColumn(column,
		gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", column)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resourceName(ref), ref.ID)
	}
	return nil
}

func readCounter(tx *gorm.DB, ref models.ItemRef, column string) (int, error) {
	scope, err := counterScope(tx, ref)
	if err != nil {
		return 0, err
	}
	var values []int
	if err := scope.Pluck(column, &values).Error; err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, models.NewNotFoundError(resourceName(ref), ref.ID)
	}
	return values[0], nil
}

func itemExists(tx *gorm.DB, ref models.ItemRef) (bool, error) {
	scope, err := counterScope(tx, ref)
	if err != nil {
		return false, err
	}
	var n int64
	if err := scope.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
