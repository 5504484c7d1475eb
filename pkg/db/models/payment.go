package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/enums"
)

// Payment tracks the Square charge backing an order.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	AmountCents     int                 `gorm:"column:amount_cents;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'MXN'"`
	SquarePaymentID *string             `gorm:"column:square_payment_id;uniqueIndex"`
	IdempotencyKey  string              `gorm:"column:idempotency_key;not null"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	ApprovedAt      *time.Time          `gorm:"column:approved_at"`
	RefundedAt      *time.Time          `gorm:"column:refunded_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
