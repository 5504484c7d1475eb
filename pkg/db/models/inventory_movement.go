package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/enums"
)

// InventoryMovement is the append-only ledger entry for a stock change.
// QuantityDelta records the signed effect on the batch; ResultingQty records
// the batch quantity after the movement was applied.
type InventoryMovement struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	BatchID        uuid.UUID          `gorm:"column:batch_id;type:uuid;not null"`
	Type           enums.MovementType `gorm:"column:type;type:movement_type;not null"`
	Quantity       int                `gorm:"column:quantity;not null"`
	QuantityDelta  int                `gorm:"column:quantity_delta;not null"`
	ResultingQty   int                `gorm:"column:resulting_qty;not null"`
	IdempotencyKey string             `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Reason         *string            `gorm:"column:reason"`
	ActorUserID    *uuid.UUID         `gorm:"column:actor_user_id;type:uuid"`
	OrderID        *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
