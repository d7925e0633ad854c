package repository

import (
	"testing"

	"pariposhan/internal/database"
	"pariposhan/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB returns a migrated in-memory sqlite database. A single
// connection keeps every query on the same in-memory schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func seedItem(t *testing.T, db *gorm.DB, kind models.ItemKind, title string) *models.Item {
	t.Helper()
	item := &models.Item{Kind: kind, AuthorID: 1, AuthorName: "Asha", Title: title, Body: "body", Category: "nutrition"}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedProduct(t *testing.T, db *gorm.DB, name string, verified bool) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Brand: "Annapurna", SubmittedBy: 1}
	require.NoError(t, db.Create(product).Error)
	if verified {
		require.NoError(t, db.Model(product).Update("is_verified", true).Error)
		product.IsVerified = true
	}
	return product
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
