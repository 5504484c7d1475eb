package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/types"
)

// Order is the purchase aggregate. Item prices and the customer type used to
// resolve them are snapshotted at creation so later catalog edits never
// rewrite history.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64                `gorm:"column:order_number;not null;uniqueIndex;default:nextval('order_number_seq'::regclass)"`
	CustomerID      uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	Status          enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	CustomerType    enums.CustomerType   `gorm:"column:customer_type;type:customer_type;not null"`
	Currency        enums.Currency       `gorm:"column:currency;type:text;not null;default:'MXN'"`
	ShippingAddress *types.Address       `gorm:"column:shipping_address;type:address_t"`
	SubtotalCents   int                  `gorm:"column:subtotal_cents;not null"`
	DiscountCents   int                  `gorm:"column:discount_cents;not null;default:0"`
	TotalCents      int                  `gorm:"column:total_cents;not null"`
	Notes           *string              `gorm:"column:notes"`
	PrescriptionID  *uuid.UUID           `gorm:"column:prescription_id;type:uuid"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CanceledAt      *time.Time           `gorm:"column:canceled_at"`
	ExpiredAt       *time.Time           `gorm:"column:expired_at"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingEvents  []OrderTrackingEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
