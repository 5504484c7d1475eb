package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/internal/pricing"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/visibility"
)

type productFinder interface {
	GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Service exposes the customer's cart operations.
type Service interface {
	SetItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartDTO, error)
	GetCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error)
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	repo      *Repository
	products  productFinder
	customers customerLoader
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productFinder, customers customerLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	return &service{repo: repo, products: products, customers: customers}, nil
}

// SetItem writes the quantity for one product, replacing any previous
// selection. Quantity caps at current stock so the storefront cannot queue
// lines that would always fail checkout.
func (s *service) SetItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := visibility.EnsurePurchasable(product, quantity); err != nil {
		return nil, err
	}

	item := &models.CartItem{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
	}
	if _, err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
	}
	return s.GetCart(ctx, customerID)
}

// GetCart returns the cart with prices resolved for the customer's effective
// pricing type.
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	rows, err := s.repo.ListWithProducts(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	pricingType := customer.PricingType()
	dto := &CartDTO{
		Items:        make([]ItemDTO, 0, len(rows)),
		Currency:     enums.CurrencyMXN,
		CustomerType: pricingType,
	}
	for i := range rows {
		row := rows[i]
		if row.Product == nil || !row.Product.IsActive {
			continue
		}
		resolution, err := pricing.Resolve(pricingType, row.Product, row.Quantity)
		if err != nil {
			return nil, err
		}
		lineTotal := resolution.UnitPriceCents * row.Quantity
		dto.Items = append(dto.Items, ItemDTO{
			ProductID:            row.ProductID,
			SKU:                  row.Product.SKU,
			Name:                 row.Product.Name,
			Quantity:             row.Quantity,
			UnitPriceCents:       resolution.UnitPriceCents,
			TotalCents:           lineTotal,
			AppliedMinQty:        resolution.AppliedMinQty,
			RequiresPrescription: row.Product.RequiresPrescription,
			StockQuantity:        row.Product.StockQuantity,
			UpdatedAt:            row.UpdatedAt,
		})
		dto.TotalCents += lineTotal
	}
	return dto, nil
}

func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartDTO, error) {
	removed, err := s.repo.Remove(ctx, customerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.GetCart(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if err := s.repo.Clear(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}
