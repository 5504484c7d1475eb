package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/internal/customers"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/pagination"
	"github.com/boticalabs/botica-backend/pkg/types"
)

type stubCustomerService struct {
	profileUser *uuid.UUID
	verified    []uuid.UUID
	address     *types.Address
	customer    *customers.CustomerDTO
	pending     *customers.PendingListResult
	err         error
}

func (s *stubCustomerService) GetProfile(ctx context.Context, userID uuid.UUID) (*customers.CustomerDTO, error) {
	s.profileUser = &userID
	return s.customer, s.err
}

func (s *stubCustomerService) UpdateShippingAddress(ctx context.Context, customerID uuid.UUID, address types.Address) (*customers.CustomerDTO, error) {
	s.address = &address
	return s.customer, s.err
}

func (s *stubCustomerService) ListPendingWholesale(ctx context.Context, page pagination.Params) (*customers.PendingListResult, error) {
	return s.pending, s.err
}

func (s *stubCustomerService) Verify(ctx context.Context, customerID, verifiedBy uuid.UUID) (*customers.CustomerDTO, error) {
	s.verified = append(s.verified, customerID)
	return s.customer, s.err
}

func TestMyProfileUsesTokenUser(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{}}
	handler := MyProfile(svc, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, userID, uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.profileUser == nil || *svc.profileUser != userID {
		t.Fatalf("unexpected user %+v", svc.profileUser)
	}
}

func TestUpdateShippingAddressValidates(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{}}
	handler := UpdateMyShippingAddress(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me/shipping-address", strings.NewReader(`{"line1":"Av. Reforma 100"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, uuid.New(), uuid.New()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.address != nil {
		t.Fatal("service must not be called")
	}
}

func TestUpdateShippingAddressForwardsFields(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{}}
	handler := UpdateMyShippingAddress(svc, nil)

	body := `{"line1":"Av. Reforma 100","city":"CDMX","state":"CDMX","postal_code":"06600","country":"MX"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/me/shipping-address", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, customerRequest(req, uuid.New(), uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.address == nil || svc.address.PostalCode != "06600" {
		t.Fatalf("unexpected address %+v", svc.address)
	}
}

func TestAdminVerifyCustomerForwardsIDs(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{}}
	handler := AdminVerifyCustomer(svc, nil)
	customerID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/customers/"+customerID.String()+"/verify", nil)
	req = withPathParam(req, "customerId", customerID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, uuid.New(), enums.RoleAdmin))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.verified) != 1 || svc.verified[0] != customerID {
		t.Fatalf("unexpected verify calls %v", svc.verified)
	}
}
