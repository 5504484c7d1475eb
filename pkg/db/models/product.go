package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a catalog listing with dual retail/wholesale pricing.
type Product struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                  string                 `gorm:"column:sku;not null;uniqueIndex"`
	Name                 string                 `gorm:"column:name;not null"`
	Description          *string                `gorm:"column:description"`
	Laboratory           *string                `gorm:"column:laboratory"`
	ActiveIngredient     *string                `gorm:"column:active_ingredient"`
	Tags                 pq.StringArray         `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	RetailPriceCents     int                    `gorm:"column:retail_price_cents;not null"`
	WholesalePriceCents  int                    `gorm:"column:wholesale_price_cents;not null"`
	RequiresPrescription bool                   `gorm:"column:requires_prescription;not null;default:false"`
	StockQuantity        int                    `gorm:"column:stock_quantity;not null;default:0"`
	MinStockLevel        *int                   `gorm:"column:min_stock_level"`
	IsActive             bool                   `gorm:"column:is_active;not null;default:true"`
	BulkPriceRules       []ProductBulkPriceRule `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Batches              []InventoryBatch       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BatchQty sums quantity across the product's batches. Only meaningful when
// Batches were preloaded; StockQuantity is the authoritative aggregate.
func (p Product) BatchQty() int {
	total := 0
	for _, batch := range p.Batches {
		total += batch.Quantity
	}
	return total
}

// BelowMinStock reports whether the aggregate stock dropped under the
// configured threshold.
func (p Product) BelowMinStock() bool {
	return p.MinStockLevel != nil && p.StockQuantity < *p.MinStockLevel
}
