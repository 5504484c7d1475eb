package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

func TestResolveRetailIgnoresBulkRules(t *testing.T) {
	t.Parallel()

	product := &models.Product{
		RetailPriceCents:    1250,
		WholesalePriceCents: 1000,
		BulkPriceRules: []models.ProductBulkPriceRule{
			{MinQty: 10, DiscountPercent: decimal.NewFromInt(50)},
		},
	}

	res, err := Resolve(enums.CustomerTypeRetail, product, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UnitPriceCents != 1250 {
		t.Fatalf("expected retail price 1250, got %d", res.UnitPriceCents)
	}
	if res.AppliedMinQty != nil {
		t.Fatalf("retail must never apply a bulk rule, got min qty %d", *res.AppliedMinQty)
	}
}

func TestResolveWholesaleSelectsHighestMatchingRule(t *testing.T) {
	t.Parallel()

	price800 := 800
	price700 := 700
	product := &models.Product{
		RetailPriceCents:    1250,
		WholesalePriceCents: 1000,
		BulkPriceRules: []models.ProductBulkPriceRule{
			{MinQty: 10, UnitPriceCents: &price800},
			{MinQty: 5, DiscountPercent: decimal.NewFromInt(5)},
			{MinQty: 20, UnitPriceCents: &price700},
		},
	}

	res, err := Resolve(enums.CustomerTypeWholesale, product, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UnitPriceCents != 800 {
		t.Fatalf("expected tier price 800 for qty 12, got %d", res.UnitPriceCents)
	}
	if res.AppliedMinQty == nil || *res.AppliedMinQty != 10 {
		t.Fatalf("expected applied min qty 10, got %+v", res.AppliedMinQty)
	}

	res, err = Resolve(enums.CustomerTypeWholesale, product, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UnitPriceCents != 700 || res.AppliedMinQty == nil || *res.AppliedMinQty != 20 {
		t.Fatalf("expected highest tier for qty 25, got %+v", res)
	}
}

func TestResolveWholesaleFallsBackWithoutMatchingRule(t *testing.T) {
	t.Parallel()

	product := &models.Product{
		RetailPriceCents:    1250,
		WholesalePriceCents: 1000,
		BulkPriceRules: []models.ProductBulkPriceRule{
			{MinQty: 10, DiscountPercent: decimal.NewFromInt(10)},
		},
	}

	res, err := Resolve(enums.CustomerTypeWholesale, product, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UnitPriceCents != 1000 {
		t.Fatalf("expected wholesale base price 1000, got %d", res.UnitPriceCents)
	}
	if res.AppliedMinQty != nil {
		t.Fatalf("expected no applied rule for qty 4, got %d", *res.AppliedMinQty)
	}
}

func TestResolveWholesaleDiscountRounding(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		wholesaleCents  int
		discountPercent string
		want            int
	}{
		{name: "exact", wholesaleCents: 1000, discountPercent: "10", want: 900},
		{name: "half rounds up", wholesaleCents: 150, discountPercent: "25", want: 113},
		{name: "fraction rounds down", wholesaleCents: 999, discountPercent: "12.5", want: 874},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			product := &models.Product{
				RetailPriceCents:    tc.wholesaleCents * 2,
				WholesalePriceCents: tc.wholesaleCents,
				BulkPriceRules: []models.ProductBulkPriceRule{
					{MinQty: 10, DiscountPercent: decimal.RequireFromString(tc.discountPercent)},
				},
			}

			res, err := Resolve(enums.CustomerTypeWholesale, product, 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.UnitPriceCents != tc.want {
				t.Fatalf("expected %d cents, got %d", tc.want, res.UnitPriceCents)
			}
		})
	}
}

func TestResolveValidation(t *testing.T) {
	t.Parallel()

	product := &models.Product{RetailPriceCents: 100, WholesalePriceCents: 90}

	if _, err := Resolve(enums.CustomerTypeRetail, nil, 1); err == nil {
		t.Fatal("expected error for missing product")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error code: %v", err)
	}

	if _, err := Resolve(enums.CustomerTypeRetail, product, 0); err == nil {
		t.Fatal("expected error for zero quantity")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error code: %v", err)
	}

	if _, err := Resolve(enums.CustomerType("VIP"), product, 1); err == nil {
		t.Fatal("expected error for unknown customer type")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestSelectBulkRule(t *testing.T) {
	t.Parallel()

	rules := []models.ProductBulkPriceRule{
		{MinQty: 10},
		{MinQty: 5},
		{MinQty: 20},
	}

	if rule := selectBulkRule(12, rules); rule == nil || rule.MinQty != 10 {
		t.Fatalf("expected rule with min qty 10, got %+v", rule)
	}
	if rule := selectBulkRule(4, rules); rule != nil {
		t.Fatalf("expected no rule for qty 4, got %+v", rule)
	}
	if rule := selectBulkRule(20, rules); rule == nil || rule.MinQty != 20 {
		t.Fatalf("expected boundary match for qty 20, got %+v", rule)
	}
}
