package squarewebhook

import (
	"context"
	"errors"
	"testing"

	"github.com/boticalabs/botica-backend/internal/payments"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/logger"
)

type stubGatewayUpdater struct {
	inputs []payments.GatewayUpdateInput
	err    error
}

func (s *stubGatewayUpdater) ApplyGatewayUpdate(ctx context.Context, input payments.GatewayUpdateInput) error {
	s.inputs = append(s.inputs, input)
	return s.err
}

func newWebhookService(t *testing.T, updater *stubGatewayUpdater) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Payments: updater,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func paymentEvent(eventType, paymentID, status string) *SquareWebhookEvent {
	return &SquareWebhookEvent{
		EventID: "evt-1",
		Type:    eventType,
		Data: SquareWebhookData{
			Type: "payment",
			ID:   paymentID,
			Object: SquareWebhookObject{
				Payment: &SquarePayment{ID: paymentID, Status: status},
			},
		},
	}
}

func TestHandleEventForwardsPaymentUpdate(t *testing.T) {
	updater := &stubGatewayUpdater{}
	svc := newWebhookService(t, updater)

	event := paymentEvent("payment.updated", "sq-pay-1", "COMPLETED")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(updater.inputs) != 1 {
		t.Fatalf("expected one gateway update, got %d", len(updater.inputs))
	}
	input := updater.inputs[0]
	if input.SquarePaymentID != "sq-pay-1" || input.Status != "COMPLETED" {
		t.Fatalf("unexpected input %+v", input)
	}
	if input.FailureReason != nil {
		t.Fatalf("expected no failure reason, got %q", *input.FailureReason)
	}
}

func TestHandleEventExtractsFailureReason(t *testing.T) {
	updater := &stubGatewayUpdater{}
	svc := newWebhookService(t, updater)

	event := paymentEvent("payment.updated", "sq-pay-2", "FAILED")
	event.Data.Object.Payment.CardDetails = &SquareCardDetails{
		Errors: []SquareError{{Code: "CVV_FAILURE", Detail: "CVV check failed"}},
	}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	input := updater.inputs[0]
	if input.FailureReason == nil || *input.FailureReason != "CVV check failed" {
		t.Fatalf("unexpected failure reason %+v", input.FailureReason)
	}
}

func TestHandleEventRejectsMissingPayload(t *testing.T) {
	updater := &stubGatewayUpdater{}
	svc := newWebhookService(t, updater)

	event := &SquareWebhookEvent{Type: "payment.updated"}
	err := svc.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(updater.inputs) != 0 {
		t.Fatalf("payments service must not be called")
	}
}

func TestHandleEventIgnoresUnsubscribedTypes(t *testing.T) {
	updater := &stubGatewayUpdater{}
	svc := newWebhookService(t, updater)

	event := &SquareWebhookEvent{EventID: "evt-9", Type: "refund.created"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(updater.inputs) != 0 {
		t.Fatalf("payments service must not be called")
	}
}

func TestHandleEventPropagatesServiceError(t *testing.T) {
	updater := &stubGatewayUpdater{err: errors.New("db down")}
	svc := newWebhookService(t, updater)

	event := paymentEvent("payment.updated", "sq-pay-3", "COMPLETED")
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected error")
	}
}
