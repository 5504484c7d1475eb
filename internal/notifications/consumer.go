package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/mail"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/idempotency"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
)

const notificationsConsumer = "notifications"

type staffLister interface {
	ListStaffIDs(ctx context.Context) ([]uuid.UUID, error)
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type mailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Consumer turns domain events into in-app notifications and emails. Each
// event is processed at most once per consumer via the idempotency manager;
// mail failures are logged but never fail the handler.
type Consumer struct {
	repo         Repository
	staff        staffLister
	customers    customerLoader
	mailer       mailSender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer. The mailer is optional;
// without one only in-app notifications are written.
func NewConsumer(repo Repository, staff staffLister, customers customerLoader, mailer mailSender, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if staff == nil {
		return nil, fmt.Errorf("staff lister required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		staff:        staff,
		customers:    customers,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationsConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleOrderCreated(ctx, payload, logCtx)
	case enums.EventOrderPaid:
		var payload payloads.OrderPaidEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleOrderPaid(ctx, payload, logCtx)
	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleOrderStatusChanged(ctx, payload, logCtx)
	case enums.EventOrderExpired:
		var payload payloads.OrderExpiredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleOrderExpired(ctx, payload, logCtx)
	case enums.EventPrescriptionSubmitted:
		var payload payloads.PrescriptionSubmittedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handlePrescriptionSubmitted(ctx, payload, logCtx)
	case enums.EventPrescriptionReviewed:
		var payload payloads.PrescriptionReviewedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handlePrescriptionReviewed(ctx, payload, logCtx)
	case enums.EventStockLow:
		var payload payloads.StockLowEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleStockLow(ctx, payload, logCtx)
	case enums.EventCustomerVerified:
		var payload payloads.CustomerVerifiedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleCustomerVerified(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, payload payloads.OrderCreatedEvent, logCtx context.Context) error {
	link := fmt.Sprintf("/admin/orders/%s", payload.OrderID)
	title := fmt.Sprintf("New order #%d", payload.OrderNumber)
	message := fmt.Sprintf("Order #%d (%d items) is awaiting payment.", payload.OrderNumber, payload.ItemCount)
	if err := c.notifyStaff(ctx, enums.NotificationTypeOrder, title, message, link); err != nil {
		return err
	}
	c.logg.Info(logCtx, "staff notified of new order")
	return nil
}

func (c *Consumer) handleOrderPaid(ctx context.Context, payload payloads.OrderPaidEvent, logCtx context.Context) error {
	customer, err := c.customers.FindByID(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	if err := c.repo.Create(ctx, &models.Notification{
		UserID:  customer.UserID,
		Type:    enums.NotificationTypeOrder,
		Title:   fmt.Sprintf("Payment confirmed for order #%d", payload.OrderNumber),
		Message: fmt.Sprintf("We received your payment of %s. Your order is being prepared.", formatCents(payload.AmountCents)),
		Link:    stringPtr(link),
	}); err != nil {
		return err
	}

	staffLink := fmt.Sprintf("/admin/orders/%s", payload.OrderID)
	if err := c.notifyStaff(ctx, enums.NotificationTypeOrder,
		fmt.Sprintf("Order #%d paid", payload.OrderNumber),
		fmt.Sprintf("Order #%d is paid and ready to prepare.", payload.OrderNumber),
		staffLink); err != nil {
		return err
	}

	c.sendMail(ctx, customer, logCtx,
		fmt.Sprintf("Pago confirmado — pedido #%d", payload.OrderNumber),
		fmt.Sprintf("Recibimos tu pago de %s por el pedido #%d. Te avisaremos cuando salga en camino.",
			formatCents(payload.AmountCents), payload.OrderNumber))

	c.logg.Info(logCtx, "customer notified of payment")
	return nil
}

func (c *Consumer) handleOrderStatusChanged(ctx context.Context, payload payloads.OrderStatusChangedEvent, logCtx context.Context) error {
	customer, err := c.customers.FindByID(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	if err := c.repo.Create(ctx, &models.Notification{
		UserID:  customer.UserID,
		Type:    enums.NotificationTypeOrder,
		Title:   fmt.Sprintf("Order #%d %s", payload.OrderNumber, payload.ToStatus),
		Message: fmt.Sprintf("Your order #%d moved from %s to %s.", payload.OrderNumber, payload.FromStatus, payload.ToStatus),
		Link:    stringPtr(link),
	}); err != nil {
		return err
	}

	if payload.ToStatus == enums.OrderStatusDispatched || payload.ToStatus == enums.OrderStatusDelivered {
		c.sendMail(ctx, customer, logCtx,
			fmt.Sprintf("Pedido #%d: %s", payload.OrderNumber, payload.ToStatus),
			fmt.Sprintf("Tu pedido #%d cambió de estado a %s.", payload.OrderNumber, payload.ToStatus))
	}

	c.logg.Info(logCtx, "customer notified of status change")
	return nil
}

func (c *Consumer) handleOrderExpired(ctx context.Context, payload payloads.OrderExpiredEvent, logCtx context.Context) error {
	customer, err := c.customers.FindByID(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	if err := c.repo.Create(ctx, &models.Notification{
		UserID:  customer.UserID,
		Type:    enums.NotificationTypeOrder,
		Title:   fmt.Sprintf("Order #%d expired", payload.OrderNumber),
		Message: fmt.Sprintf("Order #%d was not paid in time and has been canceled. The items are back in your reach through a new order.", payload.OrderNumber),
		Link:    stringPtr(link),
	}); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer notified of expiry")
	return nil
}

func (c *Consumer) handlePrescriptionSubmitted(ctx context.Context, payload payloads.PrescriptionSubmittedEvent, logCtx context.Context) error {
	link := fmt.Sprintf("/admin/prescriptions/%s", payload.PrescriptionID)
	if err := c.notifyStaff(ctx, enums.NotificationTypePrescription,
		"Prescription awaiting review",
		"A customer uploaded a prescription that needs pharmacist review.",
		link); err != nil {
		return err
	}
	c.logg.Info(logCtx, "staff notified of submitted prescription")
	return nil
}

func (c *Consumer) handlePrescriptionReviewed(ctx context.Context, payload payloads.PrescriptionReviewedEvent, logCtx context.Context) error {
	customer, err := c.customers.FindByID(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	link := fmt.Sprintf("/prescriptions/%s", payload.PrescriptionID)
	title := "Prescription approved"
	message := "Your prescription was approved. You can now order the covered products."
	subject := "Receta aprobada"
	body := "Tu receta fue aprobada. Ya puedes pedir los productos que ampara."
	if payload.Status == enums.PrescriptionStatusRejected {
		title = "Prescription rejected"
		message = "Your prescription was rejected."
		subject = "Receta rechazada"
		body = "Tu receta fue rechazada."
		if payload.RejectionReason != "" {
			message = fmt.Sprintf("Your prescription was rejected: %s", payload.RejectionReason)
			body = fmt.Sprintf("Tu receta fue rechazada: %s", payload.RejectionReason)
		}
	}

	if err := c.repo.Create(ctx, &models.Notification{
		UserID:  customer.UserID,
		Type:    enums.NotificationTypePrescription,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	}); err != nil {
		return err
	}

	c.sendMail(ctx, customer, logCtx, subject, body)
	c.logg.Info(logCtx, "customer notified of prescription decision")
	return nil
}

func (c *Consumer) handleStockLow(ctx context.Context, payload payloads.StockLowEvent, logCtx context.Context) error {
	link := fmt.Sprintf("/admin/products/%s", payload.ProductID)
	title := fmt.Sprintf("Low stock: %s", payload.Name)
	message := fmt.Sprintf("%s (%s) is down to %d units (threshold %d).",
		payload.Name, payload.SKU, payload.StockQty, payload.Threshold)
	if err := c.notifyStaff(ctx, enums.NotificationTypeInventory, title, message, link); err != nil {
		return err
	}
	c.logg.Info(logCtx, "staff notified of low stock")
	return nil
}

func (c *Consumer) handleCustomerVerified(ctx context.Context, payload payloads.CustomerVerifiedEvent, logCtx context.Context) error {
	customer, err := c.customers.FindByID(ctx, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	if err := c.repo.Create(ctx, &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeAccount,
		Title:   "Wholesale account verified",
		Message: "Your business documentation was approved. Wholesale pricing is now active on your account.",
	}); err != nil {
		return err
	}

	c.sendMail(ctx, customer, logCtx,
		"Cuenta mayorista verificada",
		"Tu documentación fue aprobada. Los precios de mayoreo ya están activos en tu cuenta.")

	c.logg.Info(logCtx, "customer notified of verification")
	return nil
}

// notifyStaff fans one notification out to every active staff account.
func (c *Consumer) notifyStaff(ctx context.Context, notifType enums.NotificationType, title, message, link string) error {
	staffIDs, err := c.staff.ListStaffIDs(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	rows := make([]models.Notification, 0, len(staffIDs))
	for _, id := range staffIDs {
		rows = append(rows, models.Notification{
			UserID:  id,
			Type:    notifType,
			Title:   title,
			Message: message,
			Link:    stringPtr(link),
		})
	}
	return c.repo.CreateBatch(ctx, rows)
}

// sendMail delivers an email to the customer's account address. Delivery
// failures are logged; the in-app notification already committed.
func (c *Consumer) sendMail(ctx context.Context, customer *models.Customer, logCtx context.Context, subject, body string) {
	if c.mailer == nil || customer.User == nil {
		return
	}
	msg := mail.Message{
		To:       customer.User.Email,
		ToName:   customer.User.FirstName + " " + customer.User.LastName,
		Subject:  subject,
		TextBody: body,
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		c.logg.Error(logCtx, "failed to send notification email", err)
	}
}

func formatCents(cents int) string {
	return fmt.Sprintf("$%d.%02d MXN", cents/100, cents%100)
}

func stringPtr(value string) *string {
	return &value
}
