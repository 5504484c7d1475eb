package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/visibility"
)

// Service exposes catalog management and browsing operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	SetBulkPricing(ctx context.Context, productID uuid.UUID, rules []BulkPriceRuleInput) ([]BulkPriceRuleDTO, error)
	GetBulkPricing(ctx context.Context, productID uuid.UUID) ([]BulkPriceRuleDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
// Stock is intentionally absent: quantities only change through the
// inventory adjustment ledger and order placement.
type CreateProductInput struct {
	SKU                  string
	Name                 string
	Description          *string
	Laboratory           *string
	ActiveIngredient     *string
	Tags                 []string
	RetailPriceCents     int
	WholesalePriceCents  int
	RequiresPrescription bool
	MinStockLevel        *int
	IsActive             bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	SKU                  *string
	Name                 *string
	Description          *string
	Laboratory           *string
	ActiveIngredient     *string
	Tags                 *[]string
	RetailPriceCents     *int
	WholesalePriceCents  *int
	RequiresPrescription *bool
	MinStockLevel        *int
	IsActive             *bool
}

// BulkPriceRuleInput defines one wholesale tier for the bulk-pricing endpoint.
type BulkPriceRuleInput struct {
	MinQty          int
	DiscountPercent decimal.Decimal
	UnitPriceCents  *int
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// CreateProduct inserts the catalog row after validating prices and identity fields.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePriceCents("retail_price_cents", input.RetailPriceCents); err != nil {
		return nil, err
	}
	if err := validatePriceCents("wholesale_price_cents", input.WholesalePriceCents); err != nil {
		return nil, err
	}
	if err := validateMinStockLevel(input.MinStockLevel); err != nil {
		return nil, err
	}

	product := &models.Product{
		SKU:                  sku,
		Name:                 name,
		Description:          input.Description,
		Laboratory:           input.Laboratory,
		ActiveIngredient:     input.ActiveIngredient,
		Tags:                 normalizeTags(input.Tags),
		RetailPriceCents:     input.RetailPriceCents,
		WholesalePriceCents:  input.WholesalePriceCents,
		RequiresPrescription: input.RequiresPrescription,
		MinStockLevel:        input.MinStockLevel,
		IsActive:             input.IsActive,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.SKU != nil && strings.TrimSpace(*input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.RetailPriceCents != nil {
		if err := validatePriceCents("retail_price_cents", *input.RetailPriceCents); err != nil {
			return nil, err
		}
	}
	if input.WholesalePriceCents != nil {
		if err := validatePriceCents("wholesale_price_cents", *input.WholesalePriceCents); err != nil {
			return nil, err
		}
	}
	if err := validateMinStockLevel(input.MinStockLevel); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	applyUpdateToProduct(product, input)
	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "idx_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}

	updated, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(updated), nil
}

// GetProduct loads a product for the storefront. Inactive products read as
// missing.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := visibility.EnsureProductVisible(product); err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// ListProducts pages through the active catalog.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	result, err := s.repo.ListProductSummaries(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// SetBulkPricing replaces the product's wholesale tiers atomically.
func (s *service) SetBulkPricing(ctx context.Context, productID uuid.UUID, rules []BulkPriceRuleInput) ([]BulkPriceRuleDTO, error) {
	if err := ensureUniqueRuleMinQty(rules); err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if err := validateBulkRule(rule); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	rows := make([]models.ProductBulkPriceRule, len(rules))
	for i, rule := range rules {
		rows[i] = models.ProductBulkPriceRule{
			ProductID:       productID,
			MinQty:          rule.MinQty,
			DiscountPercent: rule.DiscountPercent,
			UnitPriceCents:  rule.UnitPriceCents,
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceBulkPriceRules(ctx, productID, rows)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace bulk price rules")
	}

	return s.GetBulkPricing(ctx, productID)
}

// GetBulkPricing lists the product's wholesale tiers ordered by min_qty.
func (s *service) GetBulkPricing(ctx context.Context, productID uuid.UUID) ([]BulkPriceRuleDTO, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	rows, err := s.repo.ListBulkPriceRules(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bulk price rules")
	}

	dtos := make([]BulkPriceRuleDTO, len(rows))
	for i, row := range rows {
		dtos[i] = NewBulkPriceRuleDTO(row)
	}
	return dtos, nil
}

func ensureUniqueRuleMinQty(rules []BulkPriceRuleInput) error {
	seen := make(map[int]struct{}, len(rules))
	for _, rule := range rules {
		if _, ok := seen[rule.MinQty]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate bulk rule min_qty")
		}
		seen[rule.MinQty] = struct{}{}
	}
	return nil
}

func validateBulkRule(rule BulkPriceRuleInput) error {
	if rule.MinQty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_qty must be at least 1")
	}
	if rule.DiscountPercent.IsNegative() || rule.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percent must be between 0 and 100")
	}
	if rule.UnitPriceCents != nil && *rule.UnitPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_price_cents must be non-negative")
	}
	return nil
}

func validatePriceCents(field string, value int) error {
	if value < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be non-negative", field))
	}
	return nil
}

func validateMinStockLevel(value *int) error {
	if value != nil && *value < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_stock_level must be non-negative")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Laboratory != nil {
		product.Laboratory = input.Laboratory
	}
	if input.ActiveIngredient != nil {
		product.ActiveIngredient = input.ActiveIngredient
	}
	if input.Tags != nil {
		product.Tags = normalizeTags(*input.Tags)
	}
	if input.RetailPriceCents != nil {
		product.RetailPriceCents = *input.RetailPriceCents
	}
	if input.WholesalePriceCents != nil {
		product.WholesalePriceCents = *input.WholesalePriceCents
	}
	if input.RequiresPrescription != nil {
		product.RequiresPrescription = *input.RequiresPrescription
	}
	if input.MinStockLevel != nil {
		product.MinStockLevel = input.MinStockLevel
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}
