package seed

import (
	"testing"

	"pariposhan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInCatalog_Parses(t *testing.T) {
	c, err := BuiltInCatalog()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Categories)
	assert.NotEmpty(t, c.Products)
}

func TestLoadCatalog_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", "products: [name"},
		{"undeclared category", "categories: [millets]\nproducts:\n  - name: Ragi\n    category: flours\n"},
		{"missing name", "categories: [millets]\nproducts:\n  - category: millets\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestProducts_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Products(db))
	require.NoError(t, Products(db))

	c, err := BuiltInCatalog()
	require.NoError(t, err)

	var products []models.Product
	require.NoError(t, db.Find(&products).Error)
	require.Len(t, products, len(c.Products))
	for _, p := range products {
		assert.True(t, p.IsVerified, p.Name)
		require.NotNil(t, p.VerifiedAt)
	}

	var annotations int64
	require.NoError(t, db.Model(&models.ProductAnnotation{}).Count(&annotations).Error)
	assert.Equal(t, int64(len(c.Products)), annotations)
}
