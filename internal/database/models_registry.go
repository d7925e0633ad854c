package database

import (
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Item{},
		&models.Product{},
		&models.ProductAnnotation{},
		&models.ProductReview{},
		&models.Reaction{},
		&models.Comment{},
		&models.Report{},
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}
