package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
)

// AdjustmentResult is returned for both fresh movements and replays of a
// previously applied idempotency key.
type AdjustmentResult struct {
	MovementID    uuid.UUID          `json:"movement_id"`
	ProductID     uuid.UUID          `json:"product_id"`
	BatchID       uuid.UUID          `json:"batch_id"`
	BatchNumber   string             `json:"batch_number"`
	Type          enums.MovementType `json:"type"`
	Quantity      int                `json:"quantity"`
	QuantityDelta int                `json:"quantity_delta"`
	ResultingQty  int                `json:"resulting_qty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// BatchDTO describes one product lot.
type BatchDTO struct {
	ID          uuid.UUID  `json:"id"`
	BatchNumber string     `json:"batch_number"`
	Quantity    int        `json:"quantity"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MovementDTO is one ledger entry as exposed to staff.
type MovementDTO struct {
	ID             uuid.UUID          `json:"id"`
	BatchID        uuid.UUID          `json:"batch_id"`
	Type           enums.MovementType `json:"type"`
	Quantity       int                `json:"quantity"`
	QuantityDelta  int                `json:"quantity_delta"`
	ResultingQty   int                `json:"resulting_qty"`
	IdempotencyKey string             `json:"idempotency_key"`
	Reason         *string            `json:"reason,omitempty"`
	ActorUserID    *uuid.UUID         `json:"actor_user_id,omitempty"`
	OrderID        *uuid.UUID         `json:"order_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// MovementListResult carries one ledger page plus the next cursor.
type MovementListResult struct {
	Movements  []MovementDTO `json:"movements"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// LowStockProductDTO flags a product sitting under its threshold.
type LowStockProductDTO struct {
	ProductID     uuid.UUID `json:"product_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	MinStockLevel int       `json:"min_stock_level"`
}

func newAdjustmentResult(movement *models.InventoryMovement, batchNumber string) *AdjustmentResult {
	return &AdjustmentResult{
		MovementID:    movement.ID,
		ProductID:     movement.ProductID,
		BatchID:       movement.BatchID,
		BatchNumber:   batchNumber,
		Type:          movement.Type,
		Quantity:      movement.Quantity,
		QuantityDelta: movement.QuantityDelta,
		ResultingQty:  movement.ResultingQty,
		CreatedAt:     movement.CreatedAt,
	}
}

// NewBatchDTO maps a persisted batch onto its API shape.
func NewBatchDTO(batch models.InventoryBatch) BatchDTO {
	return BatchDTO{
		ID:          batch.ID,
		BatchNumber: batch.BatchNumber,
		Quantity:    batch.Quantity,
		ExpiresAt:   batch.ExpiresAt,
		CreatedAt:   batch.CreatedAt,
		UpdatedAt:   batch.UpdatedAt,
	}
}

// NewMovementDTO maps a ledger row onto its API shape.
func NewMovementDTO(movement models.InventoryMovement) MovementDTO {
	return MovementDTO{
		ID:             movement.ID,
		BatchID:        movement.BatchID,
		Type:           movement.Type,
		Quantity:       movement.Quantity,
		QuantityDelta:  movement.QuantityDelta,
		ResultingQty:   movement.ResultingQty,
		IdempotencyKey: movement.IdempotencyKey,
		Reason:         movement.Reason,
		ActorUserID:    movement.ActorUserID,
		OrderID:        movement.OrderID,
		CreatedAt:      movement.CreatedAt,
	}
}

// NewLowStockProductDTO reads the threshold fields off a product row.
func NewLowStockProductDTO(product models.Product) LowStockProductDTO {
	dto := LowStockProductDTO{
		ProductID:     product.ID,
		SKU:           product.SKU,
		Name:          product.Name,
		StockQuantity: product.StockQuantity,
	}
	if product.MinStockLevel != nil {
		dto.MinStockLevel = *product.MinStockLevel
	}
	return dto
}
