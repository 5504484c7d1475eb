package product

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
)

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                  uuid.New(),
		SKU:                 fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:                "Paracetamol 500mg",
		Tags:                pq.StringArray{"analgesic"},
		RetailPriceCents:    1250,
		WholesalePriceCents: 1000,
		StockQuantity:       stock,
		IsActive:            true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
