package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/enums"
)

// ItemDTO is one cart line with its indicative price. Prices here are a
// preview for the storefront; order placement re-resolves them.
type ItemDTO struct {
	ProductID            uuid.UUID `json:"product_id"`
	SKU                  string    `json:"sku"`
	Name                 string    `json:"name"`
	Quantity             int       `json:"quantity"`
	UnitPriceCents       int       `json:"unit_price_cents"`
	TotalCents           int       `json:"total_cents"`
	AppliedMinQty        *int      `json:"applied_min_qty,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	StockQuantity        int       `json:"stock_quantity"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CartDTO is the customer's full cart with an indicative total.
type CartDTO struct {
	Items        []ItemDTO          `json:"items"`
	TotalCents   int                `json:"total_cents"`
	Currency     enums.Currency     `json:"currency"`
	CustomerType enums.CustomerType `json:"customer_type"`
}
