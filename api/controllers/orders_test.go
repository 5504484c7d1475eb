package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/api/middleware"
	"github.com/boticalabs/botica-backend/internal/orders"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

type stubOrderService struct {
	createInput *orders.CreateOrderInput
	statusInput *orders.UpdateStatusInput
	canceled    []uuid.UUID
	order       *orders.OrderDTO
	list        *orders.OrderList
	err         error
}

func (s *stubOrderService) Create(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.createInput = &input
	return s.order, s.err
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID uuid.UUID, forCustomer *uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return s.list, s.err
}

func (s *stubOrderService) ListOrders(ctx context.Context, page pagination.Params, filters orders.AdminListFilters) (*orders.OrderList, error) {
	return s.list, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.statusInput = &input
	return s.order, s.err
}

func (s *stubOrderService) CustomerCancel(ctx context.Context, orderID, customerID, actorUserID uuid.UUID) (*orders.OrderDTO, error) {
	s.canceled = append(s.canceled, orderID)
	return s.order, s.err
}

func (s *stubOrderService) ExpireStale(ctx context.Context, cutoff time.Time, batchSize, ttlHours int) (int, error) {
	return 0, s.err
}

func customerRequest(r *http.Request, userID, customerID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.RoleCustomer))
	ctx = middleware.WithCustomer(ctx, customerID.String(), string(enums.CustomerTypeRetail), false)
	return r.WithContext(ctx)
}

func staffRequest(r *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func TestCreateOrderUsesTokenIdentity(t *testing.T) {
	svc := &stubOrderService{order: &orders.OrderDTO{}}
	handler := CreateOrder(svc, nil)
	userID := uuid.New()
	customerID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"notes":"entregar por la tarde"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, userID, customerID))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createInput == nil {
		t.Fatal("expected service call")
	}
	if svc.createInput.CustomerID != customerID || svc.createInput.ActorUserID != userID {
		t.Fatalf("unexpected identity %+v", svc.createInput)
	}
	if svc.createInput.Notes == nil || *svc.createInput.Notes != "entregar por la tarde" {
		t.Fatalf("unexpected notes %+v", svc.createInput.Notes)
	}
}

func TestCreateOrderRequiresCustomerProfile(t *testing.T) {
	svc := &stubOrderService{}
	handler := CreateOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, uuid.New(), enums.RoleAdmin))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.createInput != nil {
		t.Fatal("service must not be called")
	}
}

func TestCancelOrderForwardsIDs(t *testing.T) {
	svc := &stubOrderService{order: &orders.OrderDTO{}}
	handler := CancelOrder(svc, nil)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withPathParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, uuid.New(), uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.canceled) != 1 || svc.canceled[0] != orderID {
		t.Fatalf("unexpected cancel calls %v", svc.canceled)
	}
}

func TestAdminUpdateOrderStatusValidatesStatus(t *testing.T) {
	svc := &stubOrderService{order: &orders.OrderDTO{}}
	handler := AdminUpdateOrderStatus(svc, nil)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"teleported"}`))
	req = withPathParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, uuid.New(), enums.RoleAdmin))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.statusInput != nil {
		t.Fatal("service must not be called")
	}
}

func TestAdminUpdateOrderStatusCarriesActor(t *testing.T) {
	svc := &stubOrderService{order: &orders.OrderDTO{}}
	handler := AdminUpdateOrderStatus(svc, nil)
	orderID := uuid.New()
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"preparing"}`))
	req = withPathParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, userID, enums.RolePharmacist))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.statusInput == nil {
		t.Fatal("expected service call")
	}
	if svc.statusInput.NextStatus != enums.OrderStatusPreparing {
		t.Fatalf("unexpected status %s", svc.statusInput.NextStatus)
	}
	if svc.statusInput.ActorUserID != userID || svc.statusInput.ActorRole != enums.RolePharmacist {
		t.Fatalf("unexpected actor %+v", svc.statusInput)
	}
}

func TestListMyOrdersRejectsBadStatusFilter(t *testing.T) {
	handler := ListMyOrders(&stubOrderService{list: &orders.OrderList{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, uuid.New(), uuid.New()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
