package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/boticalabs/botica-backend/internal/customers"
	products "github.com/boticalabs/botica-backend/internal/products"
	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

const cartSchema = `
CREATE TABLE IF NOT EXISTS users (
	id uuid PRIMARY KEY,
	email text NOT NULL UNIQUE,
	password_hash text NOT NULL,
	first_name text NOT NULL,
	last_name text NOT NULL,
	phone text,
	role text NOT NULL DEFAULT 'customer',
	is_active boolean NOT NULL DEFAULT true,
	last_login_at datetime,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE IF NOT EXISTS customers (
	id uuid PRIMARY KEY,
	user_id uuid NOT NULL,
	type text NOT NULL DEFAULT 'RETAIL',
	business_name text,
	tax_id text,
	verified_at datetime,
	verified_by uuid,
	shipping_address text,
	created_at datetime,
	updated_at datetime
);
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
	id uuid PRIMARY KEY,
	product_id uuid NOT NULL,
	min_qty integer NOT NULL,
	discount_percent numeric NOT NULL DEFAULT 0,
	unit_price_cents integer,
	created_at datetime,
	UNIQUE (product_id, min_qty)
);
CREATE TABLE IF NOT EXISTS cart_items (
	id uuid PRIMARY KEY,
	customer_id uuid NOT NULL,
	product_id uuid NOT NULL,
	quantity integer NOT NULL,
	created_at datetime,
	updated_at datetime,
	UNIQUE (customer_id, product_id)
);
`

type cartTestEnv struct {
	svc    Service
	client *db.Client
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:botica_cart_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.DB().Exec(cartSchema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	svc, err := NewService(
		NewRepository(client.DB()),
		products.NewRepository(client.DB()),
		customers.NewRepository(client.DB()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &cartTestEnv{svc: svc, client: client}
}

func (e *cartTestEnv) createCustomer(t *testing.T, customerType enums.CustomerType, verified bool) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Type:   customerType,
	}
	if verified {
		now := time.Now().UTC()
		reviewer := uuid.New()
		customer.VerifiedAt = &now
		customer.VerifiedBy = &reviewer
	}
	if err := e.client.DB().Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func (e *cartTestEnv) createProduct(t *testing.T, retail, wholesale, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                  uuid.New(),
		SKU:                 fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:                "Amoxicilina 500mg",
		Tags:                pq.StringArray{"antibiotic"},
		RetailPriceCents:    retail,
		WholesalePriceCents: wholesale,
		StockQuantity:       stock,
		IsActive:            active,
	}
	if err := e.client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (e *cartTestEnv) addBulkRule(t *testing.T, productID uuid.UUID, minQty, unitPriceCents int) {
	t.Helper()
	price := unitPriceCents
	rule := &models.ProductBulkPriceRule{
		ID:             uuid.New(),
		ProductID:      productID,
		MinQty:         minQty,
		UnitPriceCents: &price,
	}
	if err := e.client.DB().Create(rule).Error; err != nil {
		t.Fatalf("create bulk rule: %v", err)
	}
}

func TestSetItemAddsLine(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1200, 900, 30, true)

	cart, err := env.svc.SetItem(ctx, customer.ID, product.ID, 3)
	if err != nil {
		t.Fatalf("set item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
	line := cart.Items[0]
	if line.Quantity != 3 || line.UnitPriceCents != 1200 || line.TotalCents != 3600 {
		t.Fatalf("unexpected line %+v", line)
	}
	if cart.TotalCents != 3600 {
		t.Fatalf("expected total 3600, got %d", cart.TotalCents)
	}
	if cart.CustomerType != enums.CustomerTypeRetail {
		t.Fatalf("expected retail pricing type, got %s", cart.CustomerType)
	}
}

func TestSetItemReplacesQuantity(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1000, 800, 30, true)

	if _, err := env.svc.SetItem(ctx, customer.ID, product.ID, 2); err != nil {
		t.Fatalf("first set: %v", err)
	}
	cart, err := env.svc.SetItem(ctx, customer.ID, product.ID, 7)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 7 {
		t.Fatalf("quantity must be replaced, not accumulated: %+v", cart.Items)
	}
}

func TestSetItemRejectsOverStock(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1000, 800, 5, true)

	_, err := env.svc.SetItem(ctx, customer.ID, product.ID, 6)
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestSetItemRejectsInactiveProduct(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1000, 800, 5, false)

	_, err := env.svc.SetItem(ctx, customer.ID, product.ID, 1)
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("inactive products must be invisible, got %v", err)
	}
}

func TestGetCartWholesaleBulkPricing(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeWholesale, true)
	product := env.createProduct(t, 1500, 1000, 100, true)
	env.addBulkRule(t, product.ID, 10, 800)

	if _, err := env.svc.SetItem(ctx, customer.ID, product.ID, 12); err != nil {
		t.Fatalf("set item: %v", err)
	}
	cart, err := env.svc.GetCart(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	line := cart.Items[0]
	if line.UnitPriceCents != 800 {
		t.Fatalf("expected bulk price 800, got %d", line.UnitPriceCents)
	}
	if line.AppliedMinQty == nil || *line.AppliedMinQty != 10 {
		t.Fatalf("expected applied min qty 10, got %v", line.AppliedMinQty)
	}
	if cart.TotalCents != 800*12 {
		t.Fatalf("expected total %d, got %d", 800*12, cart.TotalCents)
	}
}

func TestGetCartUnverifiedWholesalePricedAsRetail(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeWholesale, false)
	product := env.createProduct(t, 1500, 1000, 100, true)
	env.addBulkRule(t, product.ID, 10, 800)

	if _, err := env.svc.SetItem(ctx, customer.ID, product.ID, 12); err != nil {
		t.Fatalf("set item: %v", err)
	}
	cart, err := env.svc.GetCart(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.CustomerType != enums.CustomerTypeRetail {
		t.Fatalf("unverified wholesale must price as retail, got %s", cart.CustomerType)
	}
	if cart.Items[0].UnitPriceCents != 1500 {
		t.Fatalf("expected retail price 1500, got %d", cart.Items[0].UnitPriceCents)
	}
}

func TestGetCartSkipsDeactivatedProducts(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1000, 800, 10, true)

	if _, err := env.svc.SetItem(ctx, customer.ID, product.ID, 2); err != nil {
		t.Fatalf("set item: %v", err)
	}
	if err := env.client.DB().Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	cart, err := env.svc.GetCart(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalCents != 0 {
		t.Fatalf("deactivated products must drop out of the cart view, got %+v", cart)
	}
}

func TestRemoveItem(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	product := env.createProduct(t, 1000, 800, 10, true)

	if _, err := env.svc.SetItem(ctx, customer.ID, product.ID, 2); err != nil {
		t.Fatalf("set item: %v", err)
	}
	cart, err := env.svc.RemoveItem(ctx, customer.ID, product.ID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Items))
	}

	_, err = env.svc.RemoveItem(ctx, customer.ID, product.ID)
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("removing a missing line must 404, got %v", err)
	}
}

func TestClearCart(t *testing.T) {
	env := newCartTestEnv(t)
	ctx := context.Background()
	customer := env.createCustomer(t, enums.CustomerTypeRetail, false)
	first := env.createProduct(t, 1000, 800, 10, true)
	second := env.createProduct(t, 500, 400, 10, true)

	if _, err := env.svc.SetItem(ctx, customer.ID, first.ID, 1); err != nil {
		t.Fatalf("set first: %v", err)
	}
	if _, err := env.svc.SetItem(ctx, customer.ID, second.ID, 1); err != nil {
		t.Fatalf("set second: %v", err)
	}
	if err := env.svc.Clear(ctx, customer.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	cart, err := env.svc.GetCart(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected cleared cart, got %d lines", len(cart.Items))
	}
}
