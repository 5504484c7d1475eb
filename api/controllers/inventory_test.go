package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/internal/inventory"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

type stubInventoryService struct {
	applied *inventory.ApplyAdjustmentParams
	result  *inventory.AdjustmentResult
	err     error
}

func (s *stubInventoryService) ApplyAdjustment(ctx context.Context, params inventory.ApplyAdjustmentParams) (*inventory.AdjustmentResult, error) {
	s.applied = &params
	return s.result, s.err
}

func (s *stubInventoryService) ListBatches(ctx context.Context, productID uuid.UUID) ([]inventory.BatchDTO, error) {
	return nil, s.err
}

func (s *stubInventoryService) ListMovements(ctx context.Context, productID uuid.UUID, page pagination.Params) (*inventory.MovementListResult, error) {
	return nil, s.err
}

func (s *stubInventoryService) ListLowStock(ctx context.Context) ([]inventory.LowStockProductDTO, error) {
	return nil, s.err
}

func TestApplyInventoryAdjustmentZeroQtyRecount(t *testing.T) {
	svc := &stubInventoryService{result: &inventory.AdjustmentResult{}}
	handler := ApplyInventoryAdjustment(svc, nil)
	productID := uuid.New()

	body := `{"product_id":"` + productID.String() + `","type":"ADJUST","qty":0,"batch_number":"LOT-001","idempotency_key":"adj-zero"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/inventory/adjustments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, uuid.New(), enums.RoleAdmin))

	if resp.Code != http.StatusOK {
		t.Fatalf("zero-quantity recount must reach the service, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.applied == nil {
		t.Fatalf("service was never called")
	}
	if svc.applied.Type != enums.MovementTypeAdjust || svc.applied.Qty != 0 {
		t.Fatalf("unexpected params %+v", svc.applied)
	}
	if svc.applied.ProductID != productID {
		t.Fatalf("expected product %s, got %s", productID, svc.applied.ProductID)
	}
}

func TestApplyInventoryAdjustmentRequiresBatch(t *testing.T) {
	svc := &stubInventoryService{}
	handler := ApplyInventoryAdjustment(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","type":"IN","qty":5,"idempotency_key":"adj-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/inventory/adjustments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staffRequest(req, uuid.New(), enums.RoleAdmin))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing batch number, got %d", resp.Code)
	}
}
