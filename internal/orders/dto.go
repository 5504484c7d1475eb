package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/types"
)

// OrderItemDTO is one snapshotted line of an order.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	Qty            int        `json:"qty"`
	UnitPriceCents int        `json:"unit_price_cents"`
	TotalCents     int        `json:"total_cents"`
	AppliedMinQty  *int       `json:"applied_min_qty,omitempty"`
}

// TrackingEventDTO is one entry of the order timeline.
type TrackingEventDTO struct {
	Status      enums.OrderStatus `json:"status"`
	Description *string           `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PaymentDTO summarizes the charge backing an order.
type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	Status          enums.PaymentStatus `json:"status"`
	AmountCents     int                 `json:"amount_cents"`
	Currency        enums.Currency      `json:"currency"`
	SquarePaymentID *string             `json:"square_payment_id,omitempty"`
	FailureReason   *string             `json:"failure_reason,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderDTO is the transport shape for an order aggregate.
type OrderDTO struct {
	ID              uuid.UUID          `json:"id"`
	OrderNumber     int64              `json:"order_number"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	Status          enums.OrderStatus  `json:"status"`
	CustomerType    enums.CustomerType `json:"customer_type"`
	Currency        enums.Currency     `json:"currency"`
	ShippingAddress *types.Address     `json:"shipping_address,omitempty"`
	SubtotalCents   int                `json:"subtotal_cents"`
	DiscountCents   int                `json:"discount_cents"`
	TotalCents      int                `json:"total_cents"`
	Notes           *string            `json:"notes,omitempty"`
	PrescriptionID  *uuid.UUID         `json:"prescription_id,omitempty"`
	Items           []OrderItemDTO     `json:"items"`
	Tracking        []TrackingEventDTO `json:"tracking,omitempty"`
	Payment         *PaymentDTO        `json:"payment,omitempty"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
	CanceledAt      *time.Time         `json:"canceled_at,omitempty"`
	ExpiredAt       *time.Time         `json:"expired_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// OrderList carries one page of orders plus the next cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps an order aggregate onto its API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		Status:          order.Status,
		CustomerType:    order.CustomerType,
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		SubtotalCents:   order.SubtotalCents,
		DiscountCents:   order.DiscountCents,
		TotalCents:      order.TotalCents,
		Notes:           order.Notes,
		PrescriptionID:  order.PrescriptionID,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		PaidAt:          order.PaidAt,
		DeliveredAt:     order.DeliveredAt,
		CanceledAt:      order.CanceledAt,
		ExpiredAt:       order.ExpiredAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			SKU:            item.SKU,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
			AppliedMinQty:  item.AppliedMinQty,
		})
	}
	for _, event := range order.TrackingEvents {
		dto.Tracking = append(dto.Tracking, TrackingEventDTO{
			Status:      event.Status,
			Description: event.Description,
			CreatedAt:   event.CreatedAt,
		})
	}
	if order.Payment != nil {
		dto.Payment = &PaymentDTO{
			ID:              order.Payment.ID,
			Status:          order.Payment.Status,
			AmountCents:     order.Payment.AmountCents,
			Currency:        order.Payment.Currency,
			SquarePaymentID: order.Payment.SquarePaymentID,
			FailureReason:   order.Payment.FailureReason,
			ApprovedAt:      order.Payment.ApprovedAt,
			CreatedAt:       order.Payment.CreatedAt,
		}
	}
	return dto
}
