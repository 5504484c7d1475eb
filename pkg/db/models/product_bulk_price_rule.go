package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductBulkPriceRule captures a wholesale pricing tier for a product.
// Either UnitPriceCents pins an absolute price for the tier or
// DiscountPercent is applied against the product's wholesale price.
type ProductBulkPriceRule struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_bulk_rule_product_min_qty"`
	MinQty          int             `gorm:"column:min_qty;not null;uniqueIndex:idx_bulk_rule_product_min_qty"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	UnitPriceCents  *int            `gorm:"column:unit_price_cents"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
