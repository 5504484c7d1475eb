package squarewebhook

import (
	"context"
	"strings"

	"github.com/boticalabs/botica-backend/internal/payments"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/logger"
)

type gatewayUpdater interface {
	ApplyGatewayUpdate(ctx context.Context, input payments.GatewayUpdateInput) error
}

type ServiceParams struct {
	Payments gatewayUpdater
	Logger   *logger.Logger
}

type Service struct {
	payments gatewayUpdater
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		logg:     params.Logger,
	}, nil
}

// SquareWebhookEvent is the notification envelope Square posts to the
// webhook endpoint.
type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment is the subset of the gateway payment object we reconcile.
type SquarePayment struct {
	ID          string             `json:"id"`
	Status      string             `json:"status"`
	CardDetails *SquareCardDetails `json:"card_details"`
}

type SquareCardDetails struct {
	Errors []SquareError `json:"errors"`
}

type SquareError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// HandleEvent routes Square payment notifications into the payments service.
// Events we do not subscribe to are acknowledged without action so Square
// stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		payment := event.Data.Object.Payment
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		if strings.TrimSpace(payment.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
		}
		return s.payments.ApplyGatewayUpdate(ctx, payments.GatewayUpdateInput{
			SquarePaymentID: payment.ID,
			Status:          payment.Status,
			FailureReason:   failureReason(payment),
		})
	default:
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type": event.Type,
			"event_id":   event.EventID,
		})
		s.logg.Info(logCtx, "unhandled square event acknowledged")
		return nil
	}
}

func failureReason(payment *SquarePayment) *string {
	if payment == nil || payment.CardDetails == nil {
		return nil
	}
	for _, gatewayErr := range payment.CardDetails.Errors {
		reason := strings.TrimSpace(gatewayErr.Detail)
		if reason == "" {
			reason = strings.TrimSpace(gatewayErr.Code)
		}
		if reason != "" {
			return &reason
		}
	}
	return nil
}
