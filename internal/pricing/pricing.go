package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

// Resolution carries the outcome of resolving one line's unit price.
// AppliedMinQty is set only when a bulk rule matched; it is snapshotted onto
// order items so history survives later rule edits.
type Resolution struct {
	UnitPriceCents int
	AppliedMinQty  *int
}

// Resolve computes the unit price for a product at the given quantity.
//
// RETAIL customers always pay RetailPriceCents, even when bulk rules exist.
// WHOLESALE customers get the rule with the highest MinQty <= quantity; the
// rule's UnitPriceCents wins when set, otherwise DiscountPercent is applied
// against WholesalePriceCents and rounded to whole cents. No matching rule
// falls back to WholesalePriceCents.
//
// Callers decide the effective customer type before calling; unverified
// wholesale accounts are downgraded upstream, never here.
func Resolve(customerType enums.CustomerType, product *models.Product, quantity int) (*Resolution, error) {
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !customerType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer type")
	}

	if customerType == enums.CustomerTypeRetail {
		return &Resolution{UnitPriceCents: product.RetailPriceCents}, nil
	}

	rule := selectBulkRule(quantity, product.BulkPriceRules)
	if rule == nil {
		return &Resolution{UnitPriceCents: product.WholesalePriceCents}, nil
	}

	minQty := rule.MinQty
	if rule.UnitPriceCents != nil {
		return &Resolution{UnitPriceCents: *rule.UnitPriceCents, AppliedMinQty: &minQty}, nil
	}
	return &Resolution{
		UnitPriceCents: discountedCents(product.WholesalePriceCents, rule.DiscountPercent),
		AppliedMinQty:  &minQty,
	}, nil
}

// selectBulkRule picks the tier with the highest MinQty that the quantity
// still satisfies.
func selectBulkRule(qty int, rules []models.ProductBulkPriceRule) *models.ProductBulkPriceRule {
	var selected *models.ProductBulkPriceRule
	for _, rule := range rules {
		if rule.MinQty <= qty {
			if selected == nil || rule.MinQty > selected.MinQty {
				copy := rule
				selected = &copy
			}
		}
	}
	return selected
}

// discountedCents applies a percentage discount to a cent amount, rounding
// halves away from zero so 112.5 cents becomes 113.
func discountedCents(baseCents int, discountPercent decimal.Decimal) int {
	base := decimal.NewFromInt(int64(baseCents))
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(decimal.NewFromInt(100)))
	return int(base.Mul(factor).Round(0).IntPart())
}
