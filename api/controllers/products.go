package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boticalabs/botica-backend/api/responses"
	"github.com/boticalabs/botica-backend/api/validators"
	products "github.com/boticalabs/botica-backend/internal/products"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/logger"
)

type createProductRequest struct {
	SKU                  string   `json:"sku" validate:"required"`
	Name                 string   `json:"name" validate:"required"`
	Description          *string  `json:"description,omitempty"`
	Laboratory           *string  `json:"laboratory,omitempty"`
	ActiveIngredient     *string  `json:"active_ingredient,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	RetailPriceCents     int      `json:"retail_price_cents" validate:"required,min=1"`
	WholesalePriceCents  int      `json:"wholesale_price_cents" validate:"required,min=1"`
	RequiresPrescription bool     `json:"requires_prescription"`
	MinStockLevel        *int     `json:"min_stock_level,omitempty"`
	IsActive             *bool    `json:"is_active,omitempty"`
}

type updateProductRequest struct {
	SKU                  *string   `json:"sku,omitempty"`
	Name                 *string   `json:"name,omitempty"`
	Description          *string   `json:"description,omitempty"`
	Laboratory           *string   `json:"laboratory,omitempty"`
	ActiveIngredient     *string   `json:"active_ingredient,omitempty"`
	Tags                 *[]string `json:"tags,omitempty"`
	RetailPriceCents     *int      `json:"retail_price_cents,omitempty" validate:"omitempty,min=1"`
	WholesalePriceCents  *int      `json:"wholesale_price_cents,omitempty" validate:"omitempty,min=1"`
	RequiresPrescription *bool     `json:"requires_prescription,omitempty"`
	MinStockLevel        *int      `json:"min_stock_level,omitempty"`
	IsActive             *bool     `json:"is_active,omitempty"`
}

type bulkPricingRequest struct {
	Rules []bulkPriceRuleRequest `json:"rules" validate:"required,dive"`
}

type bulkPriceRuleRequest struct {
	MinQty          int             `json:"min_qty" validate:"required,min=2"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UnitPriceCents  *int            `json:"unit_price_cents,omitempty" validate:"omitempty,min=1"`
}

// ListProducts serves the public catalog with cursor pagination and filters.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := products.ProductListFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
			Tag:   validators.SanitizeString(r.URL.Query().Get("tag"), 60),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("requires_prescription")); raw != "" {
			value, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid requires_prescription value"))
				return
			}
			filters.RequiresPrescription = &value
		}

		result, err := svc.ListProducts(r.Context(), products.ListProductsInput{
			Filters:    filters,
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetProduct returns a single catalog entry.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateProduct registers a new catalog entry.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if body.IsActive != nil {
			isActive = *body.IsActive
		}

		result, err := svc.CreateProduct(r.Context(), products.CreateProductInput{
			SKU:                  body.SKU,
			Name:                 body.Name,
			Description:          body.Description,
			Laboratory:           body.Laboratory,
			ActiveIngredient:     body.ActiveIngredient,
			Tags:                 body.Tags,
			RetailPriceCents:     body.RetailPriceCents,
			WholesalePriceCents:  body.WholesalePriceCents,
			RequiresPrescription: body.RequiresPrescription,
			MinStockLevel:        body.MinStockLevel,
			IsActive:             isActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// UpdateProduct applies a partial mutation to a catalog entry.
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateProduct(r.Context(), productID, products.UpdateProductInput{
			SKU:                  body.SKU,
			Name:                 body.Name,
			Description:          body.Description,
			Laboratory:           body.Laboratory,
			ActiveIngredient:     body.ActiveIngredient,
			Tags:                 body.Tags,
			RetailPriceCents:     body.RetailPriceCents,
			WholesalePriceCents:  body.WholesalePriceCents,
			RequiresPrescription: body.RequiresPrescription,
			MinStockLevel:        body.MinStockLevel,
			IsActive:             body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SetBulkPricing replaces the wholesale tier ladder for a product.
func SetBulkPricing(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body bulkPricingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules := make([]products.BulkPriceRuleInput, 0, len(body.Rules))
		for _, rule := range body.Rules {
			rules = append(rules, products.BulkPriceRuleInput{
				MinQty:          rule.MinQty,
				DiscountPercent: rule.DiscountPercent,
				UnitPriceCents:  rule.UnitPriceCents,
			})
		}

		result, err := svc.SetBulkPricing(r.Context(), productID, rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetBulkPricing returns the wholesale tiers configured for a product.
func GetBulkPricing(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetBulkPricing(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
