package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pariposhan/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/catalog.yaml
var catalogYAML []byte

// CatalogEntry is one built-in product.
type CatalogEntry struct {
	Name        string `yaml:"name"`
	Brand       string `yaml:"brand"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Note        string `yaml:"note"`
}

// Catalog is the parsed fixture.
type Catalog struct {
	Categories []string       `yaml:"categories"`
	Products   []CatalogEntry `yaml:"products"`
}

// LoadCatalog parses raw catalog YAML. Every product must name a declared
// category.
func LoadCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	known := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat] = true
	}
	for i, p := range c.Products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog product %d has no name", i)
		}
		if !known[p.Category] {
			return nil, fmt.Errorf("catalog product %q uses undeclared category %q", p.Name, p.Category)
		}
	}
	return &c, nil
}

// BuiltInCatalog returns the embedded fixture.
func BuiltInCatalog() (*Catalog, error) {
	return LoadCatalog(catalogYAML)
}

// CatalogModeratorID is recorded as the verifier of built-in products.
const CatalogModeratorID uint = 0

// Products upserts the built-in catalog as verified products. Running it
// twice leaves one row per (name, brand).
func Products(db *gorm.DB) error {
	catalog, err := BuiltInCatalog()
	if err != nil {
		return err
	}
	return seedCatalog(db, catalog)
}

func seedCatalog(db *gorm.DB, catalog *Catalog) error {
	created := 0
	for _, entry := range catalog.Products {
		err := db.Transaction(func(tx *gorm.DB) error {
			var existing models.Product
			err := tx.Where("name = ? AND brand = ?", entry.Name, entry.Brand).First(&existing).Error
			if err == nil {
				return tx.Model(&existing).Updates(map[string]any{
					"description": entry.Description,
					"category":    entry.Category,
				}).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			verifier := CatalogModeratorID
			now := nowUTC()
			product := models.Product{
				Name:        entry.Name,
				Brand:       entry.Brand,
				Category:    entry.Category,
				Description: entry.Description,
				SubmittedBy: CatalogModeratorID,
				IsVerified:  true,
				VerifiedAt:  &now,
				VerifiedBy:  &verifier,
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			created++
			return tx.Create(&models.ProductAnnotation{
				ProductID:   product.ID,
				ModeratorID: CatalogModeratorID,
				Note:        entry.Note,
			}).Error
		})
		if err != nil {
			return fmt.Errorf("seed catalog product %q: %w", entry.Name, err)
		}
	}
	slog.Info("built-in catalog ensured", "products", len(catalog.Products), "created", created)
	return nil
}
