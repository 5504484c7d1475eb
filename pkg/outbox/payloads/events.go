package payloads

import (
	"time"

	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a new order committed to the database.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNumber  int64              `json:"order_number"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	CustomerType enums.CustomerType `json:"customer_type"`
	TotalCents   int                `json:"total_cents"`
	Currency     enums.Currency     `json:"currency"`
	ItemCount    int                `json:"item_count"`
}

// OrderPaidEvent is emitted once the Square payment backing an order settles.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	AmountCents int       `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderStatusChangedEvent mirrors staff-driven lifecycle transitions.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderExpiredEvent describes the payload when pending orders time out.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	CustomerID  uuid.UUID `json:"customerId"`
	ExpiredAt   time.Time `json:"expiredAt"`
	TTLHours    *int      `json:"ttl_hours,omitempty"`
}

// InventoryAdjustedEvent records a ledger movement applied to a batch.
type InventoryAdjustedEvent struct {
	ProductID    uuid.UUID          `json:"product_id"`
	BatchID      uuid.UUID          `json:"batch_id"`
	BatchNumber  string             `json:"batch_number"`
	MovementID   uuid.UUID          `json:"movement_id"`
	MovementType enums.MovementType `json:"movement_type"`
	Quantity     int                `json:"quantity"`
	ResultingQty int                `json:"resulting_qty"`
}

// StockLowEvent warns that a product dropped below its threshold.
type StockLowEvent struct {
	ProductID uuid.UUID `json:"productId"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	StockQty  int       `json:"stockQty"`
	Threshold int       `json:"threshold"`
}

// PrescriptionSubmittedEvent signals a document waiting for pharmacist review.
type PrescriptionSubmittedEvent struct {
	PrescriptionID uuid.UUID  `json:"prescription_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// PrescriptionReviewedEvent carries the pharmacist's decision.
type PrescriptionReviewedEvent struct {
	PrescriptionID  uuid.UUID                `json:"prescription_id"`
	CustomerID      uuid.UUID                `json:"customer_id"`
	OrderID         *uuid.UUID               `json:"order_id,omitempty"`
	Status          enums.PrescriptionStatus `json:"status"`
	ReviewedBy      uuid.UUID                `json:"reviewed_by"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
}

// CustomerVerifiedEvent is emitted when staff approves a wholesale account.
type CustomerVerifiedEvent struct {
	CustomerID   uuid.UUID          `json:"customer_id"`
	UserID       uuid.UUID          `json:"user_id"`
	CustomerType enums.CustomerType `json:"customer_type"`
	VerifiedBy   uuid.UUID          `json:"verified_by"`
	VerifiedAt   time.Time          `json:"verified_at"`
}
