package main

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
)

type eventProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Service pumps the analytics subscription into the consumer. Malformed
// messages are acked so they don't poison the subscription; processing
// failures are nacked for redelivery.
type Service struct {
	subscription *pubsub.Subscriber
	processor    eventProcessor
	logg         *logger.Logger
}

func NewService(subscription *pubsub.Subscriber, processor eventProcessor, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	if processor == nil {
		return nil, errors.New("event processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		processor:    processor,
		logg:         logg,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": string(eventType),
		})

		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			s.logg.Error(logCtx, "failed to decode envelope", err)
			msg.Ack()
			return
		}

		if err := s.processor.Process(ctx, eventType, envelope); err != nil {
			s.logg.Error(logCtx, "analytics processing failed", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
