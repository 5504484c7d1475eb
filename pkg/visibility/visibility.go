package visibility

import (
	"github.com/boticalabs/botica-backend/pkg/db/models"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

// EnsureProductVisible enforces canonical rules so deactivated products never
// leak through storefront queries. Admin queries skip this check.
func EnsureProductVisible(product *models.Product) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// EnsurePurchasable extends visibility with order-time stock checks. A zero
// quantity request is the caller's validation problem, not a visibility one.
func EnsurePurchasable(product *models.Product, quantity int) error {
	if err := EnsureProductVisible(product); err != nil {
		return err
	}
	if quantity > 0 && product.StockQuantity < quantity {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.StockQuantity,
			"requested":  quantity,
		})
	}
	return nil
}
