package repository

import (
	"context"
	"testing"

	"pariposhan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadProduct(t *testing.T, repo ProductRepository, id uint) *models.Product {
	t.Helper()
	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestReviewRepository_SequentialAggregate(t *testing.T) {
	db := setupTestDB(t)
	reviews := NewReviewRepository(db)
	products := NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Horse gram", true)

	for i, rating := range []int{5, 3, 4} {
		require.NoError(t, reviews.Create(ctx, &models.ProductReview{ProductID: product.ID, UserID: uint(i + 1), Rating: rating}))
	}

	got := loadProduct(t, products, product.ID)
	assert.Equal(t, int64(3), got.RatingCount)
	assert.InDelta(t, 4.0, got.AverageRating, 1e-9)
}

func TestReviewRepository_PendingDoesNotMoveAggregate(t *testing.T) {
	db := setupTestDB(t)
	reviews := NewReviewRepository(db)
	products := NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Til laddoo", true)

	require.NoError(t, reviews.Create(ctx, &models.ProductReview{ProductID: product.ID, UserID: 1, Rating: 5}))
	pending := &models.ProductReview{ProductID: product.ID, UserID: 2, Rating: 1, Status: models.ReviewStatusPending}
	require.NoError(t, reviews.Create(ctx, pending))

	got := loadProduct(t, products, product.ID)
	assert.Equal(t, int64(1), got.RatingCount)
	assert.InDelta(t, 5.0, got.AverageRating, 1e-9)

	listed, err := reviews.ListApproved(ctx, product.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	approved, err := reviews.Approve(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, approved.Status)

	// Approving again is a no-op.
	_, err = reviews.Approve(ctx, pending.ID)
	require.NoError(t, err)

	got = loadProduct(t, products, product.ID)
	assert.Equal(t, int64(2), got.RatingCount)
	assert.InDelta(t, 3.0, got.AverageRating, 1e-9)
}

func TestReviewRepository_DeleteWithdrawsApprovedRating(t *testing.T) {
	db := setupTestDB(t)
	reviews := NewReviewRepository(db)
	products := NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Kokum syrup", true)

	keep := &models.ProductReview{ProductID: product.ID, UserID: 1, Rating: 2}
	drop := &models.ProductReview{ProductID: product.ID, UserID: 2, Rating: 5}
	pending := &models.ProductReview{ProductID: product.ID, UserID: 3, Rating: 1, Status: models.ReviewStatusPending}
	for _, r := range []*models.ProductReview{keep, drop, pending} {
		require.NoError(t, reviews.Create(ctx, r))
	}

	_, err := reviews.Delete(ctx, drop.ID)
	require.NoError(t, err)
	_, err = reviews.Delete(ctx, pending.ID)
	require.NoError(t, err)

	got := loadProduct(t, products, product.ID)
	assert.Equal(t, int64(1), got.RatingCount)
	assert.InDelta(t, 2.0, got.AverageRating, 1e-9)

	_, err = reviews.Delete(ctx, drop.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestReviewRepository_MissingProduct(t *testing.T) {
	db := setupTestDB(t)
	err := NewReviewRepository(db).Create(context.Background(), &models.ProductReview{ProductID: 5, UserID: 1, Rating: 3})
	assert.True(t, models.IsNotFound(err))
	assert.Zero(t, countRows(t, db, &models.ProductReview{}, "product_id = ?", 5))
}
