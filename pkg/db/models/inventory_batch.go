package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryBatch tracks on-hand quantity for a product lot. Quantity never
// goes negative; movements that would underflow are rejected upstream.
type InventoryBatch struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_batch_product_number"`
	BatchNumber string     `gorm:"column:batch_number;not null;uniqueIndex:idx_batch_product_number"`
	Quantity    int        `gorm:"column:quantity;not null;default:0"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
