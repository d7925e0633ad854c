package database

import (
	"path/filepath"
	"testing"

	"pariposhan/internal/config"
	"pariposhan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Reaction{}, "idx_reactions_item_user"))
}

func TestMigrate_RatingCheckConstraint(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	product := models.Product{Name: "Ragi flour", SubmittedBy: 1}
	require.NoError(t, db.Create(&product).Error)

	err = db.Create(&models.ProductReview{ProductID: product.ID, UserID: 2, Rating: 6, Status: models.ReviewStatusApproved}).Error
	assert.Error(t, err, "ratings above 5 must be rejected by the schema")
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{DBDriver: "postgres"}).Name())
}
