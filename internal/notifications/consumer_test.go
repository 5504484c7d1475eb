package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/mail"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
)

type stubStaffLister struct {
	ids []uuid.UUID
}

func (s *stubStaffLister) ListStaffIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

type stubCustomerLoader struct {
	customer *models.Customer
}

func (s *stubCustomerLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.customer, nil
}

type stubMailer struct {
	sent []mail.Message
	err  error
}

func (s *stubMailer) Send(ctx context.Context, msg mail.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func newConsumerEnv(t *testing.T, staff *stubStaffLister, customers *stubCustomerLoader, mailer *stubMailer) (*Consumer, Repository) {
	t.Helper()

	_, repo, _ := newNotificationsEnv(t)
	consumer := &Consumer{
		repo:      repo,
		staff:     staff,
		customers: customers,
		mailer:    mailer,
		logg:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
	return consumer, repo
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func testCustomer() *models.Customer {
	return &models.Customer{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Type:   enums.CustomerTypeRetail,
		User: &models.User{
			Email:     "cliente@example.com",
			FirstName: "Luis",
			LastName:  "Ortega",
		},
	}
}

func TestHandleOrderCreatedFansOutToStaff(t *testing.T) {
	staff := &stubStaffLister{ids: []uuid.UUID{uuid.New(), uuid.New()}}
	consumer, repo := newConsumerEnv(t, staff, &stubCustomerLoader{customer: testCustomer()}, &stubMailer{})
	ctx := context.Background()

	payload := mustMarshal(t, payloads.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: 501,
		CustomerID:  uuid.New(),
		ItemCount:   3,
	})
	if err := consumer.handle(ctx, enums.EventOrderCreated, payload, ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}

	for _, staffID := range staff.ids {
		rows, _, err := repo.List(ctx, listNotificationsParams{UserID: staffID, Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(rows) != 1 || rows[0].Type != enums.NotificationTypeOrder {
			t.Fatalf("expected one order notification for staff %s, got %d", staffID, len(rows))
		}
	}
}

func TestHandleOrderPaidNotifiesCustomerAndMails(t *testing.T) {
	customer := testCustomer()
	mailer := &stubMailer{}
	consumer, repo := newConsumerEnv(t, &stubStaffLister{}, &stubCustomerLoader{customer: customer}, mailer)
	ctx := context.Background()

	payload := mustMarshal(t, payloads.OrderPaidEvent{
		OrderID:     uuid.New(),
		OrderNumber: 502,
		CustomerID:  customer.ID,
		PaymentID:   uuid.New(),
		AmountCents: 45000,
		PaidAt:      time.Now().UTC(),
	})
	if err := consumer.handle(ctx, enums.EventOrderPaid, payload, ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows, _, err := repo.List(ctx, listNotificationsParams{UserID: customer.UserID, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one customer notification, got %d", len(rows))
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "cliente@example.com" {
		t.Fatalf("expected a receipt email, got %v", mailer.sent)
	}
}

func TestHandleMailFailureDoesNotFailHandler(t *testing.T) {
	customer := testCustomer()
	mailer := &stubMailer{err: context.DeadlineExceeded}
	consumer, repo := newConsumerEnv(t, &stubStaffLister{}, &stubCustomerLoader{customer: customer}, mailer)
	ctx := context.Background()

	payload := mustMarshal(t, payloads.PrescriptionReviewedEvent{
		PrescriptionID:  uuid.New(),
		CustomerID:      customer.ID,
		Status:          enums.PrescriptionStatusRejected,
		ReviewedBy:      uuid.New(),
		RejectionReason: "documento ilegible",
	})
	if err := consumer.handle(ctx, enums.EventPrescriptionReviewed, payload, ctx); err != nil {
		t.Fatalf("mail failure must not fail the handler: %v", err)
	}

	rows, _, err := repo.List(ctx, listNotificationsParams{UserID: customer.UserID, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != enums.NotificationTypePrescription {
		t.Fatalf("expected the in-app notification to commit, got %d", len(rows))
	}
}

func TestHandleStockLowNotifiesStaff(t *testing.T) {
	staff := &stubStaffLister{ids: []uuid.UUID{uuid.New()}}
	consumer, repo := newConsumerEnv(t, staff, &stubCustomerLoader{customer: testCustomer()}, &stubMailer{})
	ctx := context.Background()

	payload := mustMarshal(t, payloads.StockLowEvent{
		ProductID: uuid.New(),
		SKU:       "IBU-400",
		Name:      "Ibuprofeno 400mg",
		StockQty:  4,
		Threshold: 10,
	})
	if err := consumer.handle(ctx, enums.EventStockLow, payload, ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows, _, err := repo.List(ctx, listNotificationsParams{UserID: staff.ids[0], Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != enums.NotificationTypeInventory {
		t.Fatalf("expected an inventory notification, got %d", len(rows))
	}
}

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	consumer, _ := newConsumerEnv(t, &stubStaffLister{}, &stubCustomerLoader{customer: testCustomer()}, &stubMailer{})
	ctx := context.Background()

	if err := consumer.handle(ctx, enums.OutboxEventType("unrelated"), json.RawMessage(`{}`), ctx); err != nil {
		t.Fatalf("unknown events must be ignored, got %v", err)
	}
}
