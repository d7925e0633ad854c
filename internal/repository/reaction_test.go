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

func TestReactionRepository_ToggleIsItsOwnInverse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	post := seedItem(t, db, models.ItemKindPost, "Iron-rich breakfast")
	ref := post.Ref()

	state, err := repo.Toggle(ctx, ref, 7)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 1, state.LikeCount)

	state, err = repo.Toggle(ctx, ref, 7)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, 0, state.LikeCount)
	assert.Zero(t, countRows(t, db, &models.Reaction{}, "item_id = ?", post.ID))
}

func TestReactionRepository_CounterMatchesLedger(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	article := seedItem(t, db, models.ItemKindArticle, "Anaemia in adolescents")
	ref := article.Ref()

	// users 1..5 like, then 2 and 4 unlike, then 1 toggles twice more
	for _, user := range []uint{1, 2, 3, 4, 5, 2, 4, 1, 1} {
		_, err := repo.Toggle(ctx, ref, user)
		require.NoError(t, err)
	}

	var stored models.Item
	require.NoError(t, db.First(&stored, article.ID).Error)
	ledger := countRows(t, db, &models.Reaction{}, "item_kind = ? AND item_id = ?", ref.Kind, ref.ID)
	assert.Equal(t, int64(3), ledger)
	assert.Equal(t, int(ledger), stored.LikeCount)
}

func TestReactionRepository_DuplicateInsertDoesNotDoubleCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	post := seedItem(t, db, models.ItemKindPost, "Ragi porridge")

	_, err := repo.Toggle(ctx, post.Ref(), 3)
	require.NoError(t, err)

	// A retried like that already landed must not add a second row.
	dup := models.Reaction{ItemKind: post.Kind, ItemID: post.ID, UserID: 3}
	assert.Error(t, db.Create(&dup).Error)

	var stored models.Item
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 1, stored.LikeCount)
}

func TestReactionRepository_ProductsShareTheLedger(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Moringa powder", true)
	post := seedItem(t, db, models.ItemKindPost, "same id space")
	require.Equal(t, product.ID, post.ID)

	state, err := repo.Toggle(ctx, product.Ref(), 9)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikeCount)

	var storedPost models.Item
	require.NoError(t, db.First(&storedPost, post.ID).Error)
	assert.Zero(t, storedPost.LikeCount, "a product like must not touch the post with the same id")
}

func TestReactionRepository_ToggleMissingItem(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)

	_, err := repo.Toggle(context.Background(), models.ItemRef{Kind: models.ItemKindPost, ID: 404}, 1)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Zero(t, countRows(t, db, &models.Reaction{}, "item_id = ?", 404))
}

func TestReactionRepository_LikedIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	a := seedItem(t, db, models.ItemKindPost, "a")
	b := seedItem(t, db, models.ItemKindPost, "b")
	c := seedItem(t, db, models.ItemKindPost, "c")

	_, err := repo.Toggle(ctx, a.Ref(), 5)
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, c.Ref(), 5)
	require.NoError(t, err)

	liked, err := repo.LikedIDs(ctx, models.ItemKindPost, 5, []uint{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, c.ID}, liked)

	ok, err := repo.Exists(ctx, b.Ref(), 5)
	require.NoError(t, err)
	assert.False(t, ok)

	none, err := repo.LikedIDs(ctx, models.ItemKindPost, 0, []uint{a.ID})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReactionRepository_ToggleSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reactions"`) + `.*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "items" SET "like_count"=like_count + $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .*like_count.* FROM "items"`).
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(4))
	mock.ExpectCommit()

	state, err := repo.Toggle(context.Background(), models.ItemRef{Kind: models.ItemKindPost, ID: 5}, 2)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 4, state.LikeCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
