package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/internal/orders"
	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
	"github.com/boticalabs/botica-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type squareGateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	EnsureCustomer(ctx context.Context, params square.CustomerCreateParams) (*sq.Customer, error)
	NewIdempotencyKey(prefix string) string
}

type customerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// CaptureInput carries a customer's payment attempt for a pending order.
type CaptureInput struct {
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	ActorUserID uuid.UUID
	// SourceID is the tokenized card or wallet reference produced by the
	// Square Web Payments SDK.
	SourceID string
}

// GatewayUpdateInput mirrors a payment.updated webhook notification.
type GatewayUpdateInput struct {
	SquarePaymentID string
	Status          string
	FailureReason   *string
}

// ResultDTO reports the outcome of a capture.
type ResultDTO struct {
	PaymentID       uuid.UUID           `json:"payment_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	Status          enums.PaymentStatus `json:"status"`
	AmountCents     int                 `json:"amount_cents"`
	Currency        enums.Currency      `json:"currency"`
	SquarePaymentID *string             `json:"square_payment_id,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
}

// Service charges orders through Square and keeps payment and order state in
// step with the gateway.
type Service interface {
	Capture(ctx context.Context, input CaptureInput) (*ResultDTO, error)
	ApplyGatewayUpdate(ctx context.Context, input GatewayUpdateInput) error
}

type service struct {
	repo      *Repository
	orderRepo orders.Repository
	customers customerDirectory
	gateway   squareGateway
	tx        txRunner
	outbox    outboxPublisher
	squareCfg config.SquareConfig
}

// NewService builds a payment service with the required dependencies.
func NewService(repo *Repository, orderRepo orders.Repository, customers customerDirectory, gateway squareGateway, tx txRunner, outboxSvc outboxPublisher, squareCfg config.SquareConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("square gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		orderRepo: orderRepo,
		customers: customers,
		gateway:   gateway,
		tx:        tx,
		outbox:    outboxSvc,
		squareCfg: squareCfg,
	}, nil
}

// Capture charges the order total against the provided payment source. The
// gateway call happens outside any DB transaction; on approval the payment
// row, the order flip to paid, and the order_paid event commit together.
func (s *service) Capture(ctx context.Context, input CaptureInput) (*ResultDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source required")
	}

	order, err := s.orderRepo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	payment, err := s.ensurePayment(ctx, order)
	if err != nil {
		return nil, err
	}

	gatewayPayment, err := s.gateway.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    int64(order.TotalCents),
		Currency:       order.Currency.String(),
		LocationID:     s.squareCfg.LocationID,
		CustomerID:     s.gatewayCustomerID(ctx, order),
		SourceID:       input.SourceID,
		IdempotencyKey: payment.IdempotencyKey,
		ReferenceID:    fmt.Sprintf("order-%d", order.OrderNumber),
	})
	if err != nil {
		reason := err.Error()
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			reason = pkgErr.Message()
		}
		_ = s.repo.Update(ctx, payment.ID, map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
		return nil, err
	}

	squarePaymentID := stringValue(gatewayPayment.GetID())
	status := strings.ToUpper(stringValue(gatewayPayment.GetStatus()))
	if status != "COMPLETED" && status != "APPROVED" {
		reason := fmt.Sprintf("gateway returned status %s", status)
		_ = s.repo.Update(ctx, payment.ID, map[string]any{
			"status":            enums.PaymentStatusFailed,
			"square_payment_id": squarePaymentID,
			"failure_reason":    reason,
		})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, reason)
	}

	now := time.Now().UTC()
	if err := s.settle(ctx, payment, order, squarePaymentID, now); err != nil {
		return nil, err
	}

	return &ResultDTO{
		PaymentID:       payment.ID,
		OrderID:         order.ID,
		Status:          enums.PaymentStatusApproved,
		AmountCents:     payment.AmountCents,
		Currency:        payment.Currency,
		SquarePaymentID: &squarePaymentID,
		ApprovedAt:      &now,
	}, nil
}

// gatewayCustomerID finds or creates the Square customer backing the order so
// charges show up under a customer profile in the Square dashboard. Attribution
// is best effort: a charge must not fail because the directory lookup did.
func (s *service) gatewayCustomerID(ctx context.Context, order *models.Order) string {
	customer, err := s.customers.FindByID(ctx, order.CustomerID)
	if err != nil || customer == nil || customer.User == nil {
		return ""
	}

	params := square.CustomerCreateParams{
		Email:       customer.User.Email,
		GivenName:   customer.User.FirstName,
		FamilyName:  customer.User.LastName,
		ReferenceID: customer.ID.String(),
	}
	if customer.BusinessName != nil {
		params.CompanyName = *customer.BusinessName
	}

	gatewayCustomer, err := s.gateway.EnsureCustomer(ctx, params)
	if err != nil || gatewayCustomer == nil {
		return ""
	}
	return stringValue(gatewayCustomer.GetID())
}

// ensurePayment returns the pending payment row for the order, creating it on
// first attempt. The Square idempotency key lives on the row so retries after
// a crashed capture reuse the same charge.
func (s *service) ensurePayment(ctx context.Context, order *models.Order) (*models.Payment, error) {
	payment, err := s.repo.FindByOrderID(ctx, order.ID)
	if err == nil {
		if payment.Status == enums.PaymentStatusApproved {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
		}
		if payment.Status == enums.PaymentStatusFailed {
			// Allow a fresh attempt with a new idempotency key.
			key := s.gateway.NewIdempotencyKey("order-payment")
			if err := s.repo.Update(ctx, payment.ID, map[string]any{
				"status":          enums.PaymentStatusPending,
				"idempotency_key": key,
				"failure_reason":  nil,
			}); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset payment")
			}
			payment.Status = enums.PaymentStatusPending
			payment.IdempotencyKey = key
			payment.FailureReason = nil
		}
		return payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	payment = &models.Payment{
		OrderID:        order.ID,
		Status:         enums.PaymentStatusPending,
		AmountCents:    order.TotalCents,
		Currency:       order.Currency,
		IdempotencyKey: s.gateway.NewIdempotencyKey("order-payment"),
	}
	if _, err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *service) settle(ctx context.Context, payment *models.Payment, order *models.Order, squarePaymentID string, now time.Time) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":            enums.PaymentStatusApproved,
			"square_payment_id": squarePaymentID,
			"approved_at":       now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve payment")
		}
		if err := orderRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if err := orderRepo.CreateTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID: order.ID,
			Status:  enums.OrderStatusPaid,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				PaymentID:   payment.ID,
				AmountCents: payment.AmountCents,
				PaidAt:      now,
			},
		})
	})
	if err != nil {
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return pkgErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
	}
	return nil
}

// ApplyGatewayUpdate reconciles a payment.updated webhook against our rows.
// Completed notifications settle the order if the synchronous capture never
// got to; failures mark the payment failed while the order stays pending.
func (s *service) ApplyGatewayUpdate(ctx context.Context, input GatewayUpdateInput) error {
	if strings.TrimSpace(input.SquarePaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "square payment id required")
	}

	payment, err := s.repo.FindBySquarePaymentID(ctx, input.SquarePaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not a payment we initiated; nothing to reconcile.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	status := strings.ToUpper(strings.TrimSpace(input.Status))
	switch status {
	case "COMPLETED", "APPROVED":
		if payment.Status == enums.PaymentStatusApproved {
			return nil
		}
		order, err := s.orderRepo.FindOrder(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		return s.settle(ctx, payment, order, input.SquarePaymentID, time.Now().UTC())
	case "FAILED", "CANCELED":
		if payment.Status.IsTerminal() {
			return nil
		}
		updates := map[string]any{"status": enums.PaymentStatusFailed}
		if input.FailureReason != nil {
			updates["failure_reason"] = *input.FailureReason
		}
		if err := s.repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		return nil
	default:
		// PENDING and other interim states carry no action for us.
		return nil
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
