package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boticalabs/botica-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID                   uuid.UUID          `json:"id"`
	SKU                  string             `json:"sku"`
	Name                 string             `json:"name"`
	Description          *string            `json:"description,omitempty"`
	Laboratory           *string            `json:"laboratory,omitempty"`
	ActiveIngredient     *string            `json:"active_ingredient,omitempty"`
	Tags                 []string           `json:"tags"`
	RetailPriceCents     int                `json:"retail_price_cents"`
	WholesalePriceCents  int                `json:"wholesale_price_cents"`
	RequiresPrescription bool               `json:"requires_prescription"`
	StockQuantity        int                `json:"stock_quantity"`
	MinStockLevel        *int               `json:"min_stock_level,omitempty"`
	IsActive             bool               `json:"is_active"`
	BulkPriceRules       []BulkPriceRuleDTO `json:"bulk_price_rules,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// BulkPriceRuleDTO represents a wholesale pricing tier.
type BulkPriceRuleDTO struct {
	ID              uuid.UUID       `json:"id"`
	MinQty          int             `json:"min_qty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UnitPriceCents  *int            `json:"unit_price_cents,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ProductSummary is the compact row returned by the browse endpoint.
type ProductSummary struct {
	ID                   uuid.UUID `json:"id"`
	SKU                  string    `json:"sku"`
	Name                 string    `json:"name"`
	Laboratory           *string   `json:"laboratory,omitempty"`
	ActiveIngredient     *string   `json:"active_ingredient,omitempty"`
	Tags                 []string  `json:"tags"`
	RetailPriceCents     int       `json:"retail_price_cents"`
	WholesalePriceCents  int       `json:"wholesale_price_cents"`
	RequiresPrescription bool      `json:"requires_prescription"`
	StockQuantity        int       `json:"stock_quantity"`
	HasBulkPricing       bool      `json:"has_bulk_pricing"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProductListResult carries one page of summaries plus the next cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                   product.ID,
		SKU:                  product.SKU,
		Name:                 product.Name,
		Description:          product.Description,
		Laboratory:           product.Laboratory,
		ActiveIngredient:     product.ActiveIngredient,
		Tags:                 append([]string{}, product.Tags...),
		RetailPriceCents:     product.RetailPriceCents,
		WholesalePriceCents:  product.WholesalePriceCents,
		RequiresPrescription: product.RequiresPrescription,
		StockQuantity:        product.StockQuantity,
		MinStockLevel:        product.MinStockLevel,
		IsActive:             product.IsActive,
		CreatedAt:            product.CreatedAt,
		UpdatedAt:            product.UpdatedAt,
	}

	if len(product.BulkPriceRules) > 0 {
		dto.BulkPriceRules = make([]BulkPriceRuleDTO, len(product.BulkPriceRules))
		for i, rule := range product.BulkPriceRules {
			dto.BulkPriceRules[i] = NewBulkPriceRuleDTO(rule)
		}
	}

	return dto
}

// NewBulkPriceRuleDTO maps a persisted rule onto its API shape.
func NewBulkPriceRuleDTO(rule models.ProductBulkPriceRule) BulkPriceRuleDTO {
	return BulkPriceRuleDTO{
		ID:              rule.ID,
		MinQty:          rule.MinQty,
		DiscountPercent: rule.DiscountPercent,
		UnitPriceCents:  rule.UnitPriceCents,
		CreatedAt:       rule.CreatedAt,
	}
}
