package invoices

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

type stubOrderLoader struct {
	orders map[uuid.UUID]*models.Order
}

func (s *stubOrderLoader) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

type stubCustomerLoader struct {
	customer *models.Customer
}

func (s *stubCustomerLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.customer, nil
}

func fixtureOrder(status enums.OrderStatus) *models.Order {
	now := time.Now().UTC()
	productID := uuid.New()
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   2045,
		CustomerID:    uuid.New(),
		Status:        status,
		CustomerType:  enums.CustomerTypeWholesale,
		Currency:      enums.CurrencyMXN,
		SubtotalCents: 125000,
		DiscountCents: 12500,
		TotalCents:    112500,
		PaidAt:        &now,
		CreatedAt:     now,
		Items: []models.OrderItem{
			{
				ID:             uuid.New(),
				ProductID:      &productID,
				SKU:            "PARA-500",
				Name:           "Paracetamol 500mg (100 tabletas)",
				Qty:            50,
				UnitPriceCents: 2250,
				TotalCents:     112500,
				AppliedMinQty:  intPtr(50),
			},
		},
	}
}

func fixtureCustomer(orderCustomerID uuid.UUID) *models.Customer {
	business := "Farmacia del Centro SA"
	taxID := "FDC010101XYZ"
	return &models.Customer{
		ID:           orderCustomerID,
		UserID:       uuid.New(),
		Type:         enums.CustomerTypeWholesale,
		BusinessName: &business,
		TaxID:        &taxID,
		User: &models.User{
			FirstName: "Carmen",
			LastName:  "Ruiz",
		},
	}
}

func intPtr(v int) *int { return &v }

func TestGetInvoicePDFRendersPaidOrder(t *testing.T) {
	order := fixtureOrder(enums.OrderStatusPaid)
	svc, err := NewService(
		&stubOrderLoader{orders: map[uuid.UUID]*models.Order{order.ID: order}},
		&stubCustomerLoader{customer: fixtureCustomer(order.CustomerID)},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	pdf, err := svc.GetInvoicePDF(context.Background(), order.ID, &order.CustomerID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected pdf bytes")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected a pdf document, got %q", pdf[:8])
	}
}

func TestGetInvoicePDFRejectsPendingOrder(t *testing.T) {
	order := fixtureOrder(enums.OrderStatusPending)
	svc, err := NewService(
		&stubOrderLoader{orders: map[uuid.UUID]*models.Order{order.ID: order}},
		&stubCustomerLoader{customer: fixtureCustomer(order.CustomerID)},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetInvoicePDF(context.Background(), order.ID, nil)
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestGetInvoicePDFHidesForeignOrder(t *testing.T) {
	order := fixtureOrder(enums.OrderStatusDelivered)
	svc, err := NewService(
		&stubOrderLoader{orders: map[uuid.UUID]*models.Order{order.ID: order}},
		&stubCustomerLoader{customer: fixtureCustomer(order.CustomerID)},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	other := uuid.New()
	_, err = svc.GetInvoicePDF(context.Background(), order.ID, &other)
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil || pkgErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign order, got %v", err)
	}
}
