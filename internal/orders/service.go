package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/internal/cart"
	"github.com/boticalabs/botica-backend/internal/pricing"
	"github.com/boticalabs/botica-backend/pkg/checkout"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
	"github.com/boticalabs/botica-backend/pkg/pagination"
	"github.com/boticalabs/botica-backend/pkg/types"
	"github.com/boticalabs/botica-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type prescriptionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	AttachOrderTx(ctx context.Context, tx *gorm.DB, prescriptionID, orderID uuid.UUID) error
}

// Service exposes the order lifecycle: placement, reads, staff transitions,
// customer cancellation, and TTL expiry.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, forCustomer *uuid.UUID) (*OrderDTO, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page pagination.Params, filters ListFilters) (*OrderList, error)
	ListOrders(ctx context.Context, page pagination.Params, filters AdminListFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	CustomerCancel(ctx context.Context, orderID, customerID, actorUserID uuid.UUID) (*OrderDTO, error)
	ExpireStale(ctx context.Context, cutoff time.Time, batchSize, ttlHours int) (int, error)
}

// CreateOrderInput captures everything needed to place an order from the
// customer's cart.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	ActorUserID     uuid.UUID
	ShippingAddress *types.Address
	Notes           *string
	PrescriptionID  *uuid.UUID
}

// UpdateStatusInput carries a staff-driven lifecycle transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	NextStatus  enums.OrderStatus
	Description *string
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type service struct {
	repo          Repository
	carts         *cart.Repository
	customers     customerLoader
	prescriptions prescriptionStore
	tx            txRunner
	outbox        outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, carts *cart.Repository, customers customerLoader, prescriptions prescriptionStore, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if prescriptions == nil {
		return nil, fmt.Errorf("prescription store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:          repo,
		carts:         carts,
		customers:     customers,
		prescriptions: prescriptions,
		tx:            tx,
		outbox:        outboxSvc,
	}, nil
}

// Create places an order from the customer's cart. Pricing resolution, stock
// decrements, the order insert, the cart clear, and the order_created event
// all commit in one transaction; any failed stock guard rolls back the whole
// placement.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	pricingType := customer.PricingType()

	shippingAddress := input.ShippingAddress
	if shippingAddress == nil {
		shippingAddress = customer.ShippingAddress
	}
	if shippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	covered, err := s.prescriptionCoverage(ctx, customer.ID, input.PrescriptionID)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.carts.WithTx(tx)

		cartRows, err := cartRepo.ListWithProducts(ctx, customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(cartRows) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		rxInputs := make([]checkout.RxValidationInput, 0, len(cartRows))
		items := make([]models.OrderItem, 0, len(cartRows))
		subtotal := 0
		discount := 0
		for i := range cartRows {
			row := cartRows[i]
			if row.Product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available")
			}
			if err := visibility.EnsurePurchasable(row.Product, row.Quantity); err != nil {
				return err
			}

			resolution, err := pricing.Resolve(pricingType, row.Product, row.Quantity)
			if err != nil {
				return err
			}
			basePriceCents := row.Product.RetailPriceCents
			if pricingType == enums.CustomerTypeWholesale {
				basePriceCents = row.Product.WholesalePriceCents
			}

			rxInputs = append(rxInputs, checkout.RxValidationInput{
				ProductID:            row.ProductID,
				ProductName:          row.Product.Name,
				RequiresPrescription: row.Product.RequiresPrescription,
				Covered:              covered[row.ProductID],
			})

			productID := row.ProductID
			lineTotal := resolution.UnitPriceCents * row.Quantity
			items = append(items, models.OrderItem{
				ProductID:      &productID,
				SKU:            row.Product.SKU,
				Name:           row.Product.Name,
				Qty:            row.Quantity,
				UnitPriceCents: resolution.UnitPriceCents,
				TotalCents:     lineTotal,
				AppliedMinQty:  resolution.AppliedMinQty,
			})
			subtotal += basePriceCents * row.Quantity
			discount += (basePriceCents - resolution.UnitPriceCents) * row.Quantity
		}

		if err := checkout.ValidatePrescriptionCoverage(rxInputs); err != nil {
			return err
		}

		for i := range cartRows {
			row := cartRows[i]
			decremented, err := repo.DecrementProductStock(ctx, row.ProductID, row.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !decremented {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
					"product_id": row.ProductID,
					"requested":  row.Quantity,
				})
			}
		}

		order := &models.Order{
			CustomerID:      customer.ID,
			Status:          enums.OrderStatusPending,
			CustomerType:    pricingType,
			Currency:        enums.CurrencyMXN,
			ShippingAddress: shippingAddress,
			SubtotalCents:   subtotal,
			DiscountCents:   discount,
			TotalCents:      subtotal - discount,
			Notes:           input.Notes,
			PrescriptionID:  input.PrescriptionID,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.CreateTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusPending,
			ActorUserID: &input.ActorUserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		if input.PrescriptionID != nil {
			if err := s.prescriptions.AttachOrderTx(ctx, tx, *input.PrescriptionID, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach prescription")
			}
		}

		if err := cartRepo.Clear(ctx, customer.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		order.Items = items
		created = order

		actorCustomerID := customer.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:     input.ActorUserID,
				CustomerID: &actorCustomerID,
				Role:       enums.RoleCustomer.String(),
			},
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				CustomerID:   order.CustomerID,
				CustomerType: order.CustomerType,
				TotalCents:   order.TotalCents,
				Currency:     order.Currency,
				ItemCount:    len(items),
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
	}
	return NewOrderDTO(created), nil
}

// prescriptionCoverage resolves which products an approved prescription
// covers. A nil prescription ID yields empty coverage.
func (s *service) prescriptionCoverage(ctx context.Context, customerID uuid.UUID, prescriptionID *uuid.UUID) (map[uuid.UUID]bool, error) {
	covered := map[uuid.UUID]bool{}
	if prescriptionID == nil {
		return covered, nil
	}

	rx, err := s.prescriptions.FindByID(ctx, *prescriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
	}
	if rx.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "prescription does not belong to customer")
	}
	if rx.Status != enums.PrescriptionStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "prescription is not approved")
	}
	if rx.OrderID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "prescription already used by another order")
	}
	for _, id := range rx.ProductIDs {
		covered[id] = true
	}
	return covered, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, forCustomer *uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if forCustomer != nil && order.CustomerID != *forCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.ListCustomerOrders(ctx, customerID, page, filters)
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListOrders(ctx context.Context, page pagination.Params, filters AdminListFilters) (*OrderList, error) {
	list, err := s.repo.ListOrders(ctx, page, filters)
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// UpdateStatus applies a staff transition following the order status machine.
// Canceling an undispatched order returns its stock.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.NextStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.NextStatus == enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders move to paid through payment capture")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(input.NextStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").WithDetails(map[string]any{
				"from": order.Status,
				"to":   input.NextStatus,
			})
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.NextStatus}
		switch input.NextStatus {
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCanceled:
			updates["canceled_at"] = now
		}

		if input.NextStatus == enums.OrderStatusCanceled {
			if err := restockItems(ctx, repo, order.Items); err != nil {
				return err
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.CreateTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      input.NextStatus,
			Description: input.Description,
			ActorUserID: &input.ActorUserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		fromStatus := order.Status
		order.Status = input.NextStatus
		switch input.NextStatus {
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusCanceled:
			order.CanceledAt = &now
		}
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				FromStatus:  fromStatus,
				ToStatus:    input.NextStatus,
				ChangedAt:   now,
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	return NewOrderDTO(updated), nil
}

// CustomerCancel lets the owning customer cancel an order that has not been
// paid yet.
func (s *service) CustomerCancel(ctx context.Context, orderID, customerID, actorUserID uuid.UUID) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be canceled")
		}

		now := time.Now().UTC()
		if err := restockItems(ctx, repo, order.Items); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if err := repo.CreateTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusCanceled,
			ActorUserID: &actorUserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		fromStatus := order.Status
		order.Status = enums.OrderStatusCanceled
		order.CanceledAt = &now
		updated = order

		actorCustomerID := customerID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:     actorUserID,
				CustomerID: &actorCustomerID,
				Role:       enums.RoleCustomer.String(),
			},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				FromStatus:  fromStatus,
				ToStatus:    enums.OrderStatusCanceled,
				ChangedAt:   now,
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return nil, pkgErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	return NewOrderDTO(updated), nil
}

// ExpireStale times out pending orders created before the cutoff, returning
// their stock. Each order expires in its own transaction so one failure does
// not hold the rest of the batch.
func (s *service) ExpireStale(ctx context.Context, cutoff time.Time, batchSize, ttlHours int) (int, error) {
	ids, err := s.repo.FindPendingOrderIDsBefore(ctx, cutoff, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}

	expired := 0
	for _, id := range ids {
		if err := s.expireOne(ctx, id, ttlHours); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *service) expireOne(ctx context.Context, orderID uuid.UUID, ttlHours int) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// The payment webhook may have flipped the order after the batch
		// was selected.
		if order.Status != enums.OrderStatusPending {
			return nil
		}

		now := time.Now().UTC()
		if err := restockItems(ctx, repo, order.Items); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":     enums.OrderStatusExpired,
			"expired_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire order")
		}
		if err := repo.CreateTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID: order.ID,
			Status:  enums.OrderStatusExpired,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderExpiredEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				ExpiredAt:   now,
				TTLHours:    &ttlHours,
			},
		})
	})
}

func restockItems(ctx context.Context, repo Repository, items []models.OrderItem) error {
	for _, item := range items {
		if item.ProductID == nil || item.Qty <= 0 {
			continue
		}
		if err := repo.RestoreProductStock(ctx, *item.ProductID, item.Qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}
	return nil
}
