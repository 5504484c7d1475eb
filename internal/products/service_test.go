package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

const bulkPricingSchema = `
CREATE TABLE IF NOT EXISTS products (
	id uuid PRIMARY KEY,
	sku text NOT NULL UNIQUE,
	name text NOT NULL,
	description text,
	laboratory text,
	active_ingredient text,
	tags text NOT NULL DEFAULT '{}',
	retail_price_cents integer NOT NULL,
	wholesale_price_cents integer NOT NULL,
	requires_prescription boolean NOT NULL DEFAULT false,
	stock_quantity integer NOT NULL DEFAULT 0,
	min_stock_level integer,
	is_active boolean NOT NULL DEFAULT true,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE IF NOT EXISTS product_bulk_price_rules (
	id uuid,
	product_id uuid NOT NULL,
	min_qty integer NOT NULL,
	discount_percent numeric NOT NULL DEFAULT 0,
	unit_price_cents integer,
	created_at datetime,
	UNIQUE (product_id, min_qty)
);
`

func newBulkPricingService(t *testing.T) (Service, *db.Client) {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:botica_products_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.DB().Exec(bulkPricingSchema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	svc, err := NewService(NewRepository(client.DB()), client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func TestBulkPricingRoundTrip(t *testing.T) {
	svc, client := newBulkPricingService(t)
	ctx := context.Background()

	product := mustCreateTestProduct(t, client.DB(), 20)

	price700 := 700
	saved, err := svc.SetBulkPricing(ctx, product.ID, []BulkPriceRuleInput{
		{MinQty: 10, DiscountPercent: decimal.NewFromInt(5)},
		{MinQty: 50, DiscountPercent: decimal.RequireFromString("12.5")},
		{MinQty: 100, UnitPriceCents: &price700},
	})
	if err != nil {
		t.Fatalf("set bulk pricing: %v", err)
	}
	if len(saved) != 3 {
		t.Fatalf("expected 3 rules saved, got %d", len(saved))
	}

	got, err := svc.GetBulkPricing(ctx, product.ID)
	if err != nil {
		t.Fatalf("get bulk pricing: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rules back, got %d", len(got))
	}
	if got[0].MinQty != 10 || !got[0].DiscountPercent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected first rule: %+v", got[0])
	}
	if got[1].MinQty != 50 || !got[1].DiscountPercent.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected second rule: %+v", got[1])
	}
	if got[2].MinQty != 100 || got[2].UnitPriceCents == nil || *got[2].UnitPriceCents != 700 {
		t.Fatalf("unexpected third rule: %+v", got[2])
	}

	// A second PUT replaces, never appends.
	replaced, err := svc.SetBulkPricing(ctx, product.ID, []BulkPriceRuleInput{
		{MinQty: 20, DiscountPercent: decimal.NewFromInt(8)},
	})
	if err != nil {
		t.Fatalf("replace bulk pricing: %v", err)
	}
	if len(replaced) != 1 || replaced[0].MinQty != 20 {
		t.Fatalf("expected single replacing rule, got %+v", replaced)
	}
}

func TestSetBulkPricingValidation(t *testing.T) {
	svc, client := newBulkPricingService(t)
	ctx := context.Background()

	product := mustCreateTestProduct(t, client.DB(), 0)

	cases := []struct {
		name  string
		rules []BulkPriceRuleInput
	}{
		{
			name: "duplicate min qty",
			rules: []BulkPriceRuleInput{
				{MinQty: 10, DiscountPercent: decimal.NewFromInt(5)},
				{MinQty: 10, DiscountPercent: decimal.NewFromInt(10)},
			},
		},
		{
			name:  "zero min qty",
			rules: []BulkPriceRuleInput{{MinQty: 0}},
		},
		{
			name:  "discount above 100",
			rules: []BulkPriceRuleInput{{MinQty: 10, DiscountPercent: decimal.NewFromInt(101)}},
		},
		{
			name: "negative unit price",
			rules: []BulkPriceRuleInput{{MinQty: 10, UnitPriceCents: func() *int {
				v := -1
				return &v
			}()}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SetBulkPricing(ctx, product.ID, tc.rules)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("unexpected error code: %v", err)
			}
		})
	}

	if _, err := svc.SetBulkPricing(ctx, uuid.New(), []BulkPriceRuleInput{{MinQty: 10}}); err == nil {
		t.Fatal("expected error for unknown product")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newBulkPricingService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{name: "missing sku", input: CreateProductInput{Name: "Paracetamol", RetailPriceCents: 100, WholesalePriceCents: 90}},
		{name: "missing name", input: CreateProductInput{SKU: "PARA-500", RetailPriceCents: 100, WholesalePriceCents: 90}},
		{name: "negative retail", input: CreateProductInput{SKU: "PARA-500", Name: "Paracetamol", RetailPriceCents: -1, WholesalePriceCents: 90}},
		{name: "negative wholesale", input: CreateProductInput{SKU: "PARA-500", Name: "Paracetamol", RetailPriceCents: 100, WholesalePriceCents: -1}},
		{name: "negative min stock", input: CreateProductInput{SKU: "PARA-500", Name: "Paracetamol", RetailPriceCents: 100, WholesalePriceCents: 90, MinStockLevel: func() *int {
			v := -1
			return &v
		}()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("unexpected error code: %v", err)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := normalizeTags([]string{" Analgesic ", "analgesic", "", "NSAID"})
	if len(got) != 2 || got[0] != "analgesic" || got[1] != "nsaid" {
		t.Fatalf("expected lowercased deduped tags, got %v", got)
	}
}
