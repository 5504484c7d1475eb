package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/api/responses"
	"github.com/boticalabs/botica-backend/api/validators"
	"github.com/boticalabs/botica-backend/internal/inventory"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/logger"
)

type adjustmentRequest struct {
	ProductID      uuid.UUID  `json:"product_id" validate:"required"`
	Type           string     `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	// Qty is validated per movement type by the service: IN/OUT need a
	// positive quantity, ADJUST accepts zero (absolute recount).
	Qty            int        `json:"qty"`
	BatchNumber    string     `json:"batch_number" validate:"required"`
	IdempotencyKey string     `json:"idempotency_key" validate:"required"`
	Reason         *string    `json:"reason,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ApplyInventoryAdjustment records a ledger movement against a product batch.
func ApplyInventoryAdjustment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actorID, err := actorUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyAdjustment(r.Context(), inventory.ApplyAdjustmentParams{
			ProductID:      body.ProductID,
			Type:           enums.MovementType(body.Type),
			Qty:            body.Qty,
			BatchNumber:    body.BatchNumber,
			IdempotencyKey: body.IdempotencyKey,
			Reason:         body.Reason,
			ActorID:        &actorID,
			ExpiresAt:      body.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListInventoryBatches returns the batches on hand for a product.
func ListInventoryBatches(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListBatches(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListInventoryMovements pages through a product's ledger history.
func ListInventoryMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMovements(r.Context(), productID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListLowStock returns products at or under their restock threshold.
func ListLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		result, err := svc.ListLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
