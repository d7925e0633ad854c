package repository

import (
	"context"
	"regexp"
	"testing"

	"pariposhan/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestProductRepository_VerifiedFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	pending := &models.Product{Name: "Bajra flour", SubmittedBy: 4}
	require.NoError(t, repo.Create(ctx, pending))
	assert.False(t, pending.IsVerified)

	verified, err := repo.List(ctx, ProductFilter{Verified: boolPtr(true)})
	require.NoError(t, err)
	assert.Empty(t, verified)

	changed, err := repo.Verify(ctx, pending.ID, 99, "label checked")
	require.NoError(t, err)
	assert.True(t, changed)

	verified, err = repo.List(ctx, ProductFilter{Verified: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, pending.ID, verified[0].ID)

	got, err := repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, uint(99), *got.VerifiedBy)
	require.Len(t, got.Annotations, 1)
	assert.Equal(t, "label checked", got.Annotations[0].Note)
}

func TestProductRepository_VerifyTwiceAddsOneAnnotation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Amla candy", false)

	changed, err := repo.Verify(ctx, product.ID, 1, "ok")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Verify(ctx, product.ID, 2, "ok again")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, int64(1), countRows(t, db, &models.ProductAnnotation{}, "product_id = ?", product.ID))
}

func TestProductRepository_VerifyMissing(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewProductRepository(db).Verify(context.Background(), 12, 1, "")
	assert.True(t, models.IsNotFound(err))
}

func TestProductRepository_DeleteUnverified(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	unverified := seedProduct(t, db, "Flaxseed mix", false)
	verified := seedProduct(t, db, "Peanut chikki", true)

	require.NoError(t, repo.DeleteUnverified(ctx, unverified.ID))
	assert.Zero(t, countRows(t, db, &models.Product{}, "id = ?", unverified.ID))

	err := repo.DeleteUnverified(ctx, verified.ID)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	assert.Equal(t, int64(1), countRows(t, db, &models.Product{}, "id = ?", verified.ID))

	err = repo.DeleteUnverified(ctx, unverified.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestProductRepository_DeleteRemovesChildren(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Millet cookies", false)
	_, err := repo.Verify(ctx, product.ID, 1, "fine")
	require.NoError(t, err)
	require.NoError(t, NewReviewRepository(db).Create(ctx, &models.ProductReview{ProductID: product.ID, UserID: 2, Rating: 4}))
	_, err = NewReactionRepository(db).Toggle(ctx, product.Ref(), 2)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, product.ID))
	assert.Zero(t, countRows(t, db, &models.ProductAnnotation{}, "product_id = ?", product.ID))
	assert.Zero(t, countRows(t, db, &models.ProductReview{}, "product_id = ?", product.ID))
	assert.Zero(t, countRows(t, db, &models.Reaction{}, "item_kind = ? AND item_id = ?", models.ItemKindProduct, product.ID))

	assert.True(t, models.IsNotFound(repo.Delete(ctx, product.ID)))
}

func TestProductRepository_ListSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "Ragi Malt", true)
	seedProduct(t, db, "Sattu drink", true)

	found, err := repo.List(ctx, ProductFilter{Query: "ragi"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ragi Malt", found[0].Name)

	n, err := repo.Count(ctx, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestProductRepository_VerifySQLIsConditional(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`) + `.*` + regexp.QuoteMeta(`WHERE id = $`) + `.*is_verified = \$`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE id = $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	changed, err := repo.Verify(context.Background(), 3, 1, "")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
