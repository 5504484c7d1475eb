// Package analytics streams domain events into BigQuery for reporting.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer writes order and inventory events to BigQuery while honoring
// Redis idempotency. Order lifecycle events land in the order_events table,
// inventory movements in inventory_events; everything else is skipped.
type Consumer struct {
	client  tableInserter
	cfg     config.BigQueryConfig
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds a new analytics consumer.
func NewConsumer(client tableInserter, cfg config.BigQueryConfig, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(cfg.OrderEventsTable) == "" || strings.TrimSpace(cfg.InventoryEventsTable) == "" {
		return nil, fmt.Errorf("bigquery table names required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		manager: manager,
		logg:    logg,
	}, nil
}

// Process ingests the outbox envelope into BigQuery if the event is supported.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	table := c.tableFor(eventType)
	if table == "" {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	row, err := buildRow(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build analytics row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	if err := c.client.InsertRows(ctx, table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert analytics row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "analytics event ingested")
	return nil
}

func (c *Consumer) tableFor(eventType enums.OutboxEventType) string {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderPaid, enums.EventOrderStatusChanged, enums.EventOrderExpired:
		return c.cfg.OrderEventsTable
	case enums.EventInventoryAdjusted, enums.EventStockLow:
		return c.cfg.InventoryEventsTable
	default:
		return ""
	}
}

type domainEventRow struct {
	EventID    string             `bigquery:"event_id"`
	EventType  string             `bigquery:"event_type"`
	OccurredAt time.Time          `bigquery:"occurred_at"`
	OrderID    *string            `bigquery:"order_id"`
	CustomerID *string            `bigquery:"customer_id"`
	ProductID  *string            `bigquery:"product_id"`
	Payload    cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*domainEventRow, error) {
	payload := map[string]any{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	return &domainEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt,
		OrderID:    stringValue(payload, "order_id", "orderId"),
		CustomerID: stringValue(payload, "customer_id", "customerId"),
		ProductID:  stringValue(payload, "product_id", "productId"),
		Payload:    payloadJSON,
	}, nil
}

// stringValue picks the first non-empty string among the candidate keys.
// Payloads are not uniform in their key casing.
func stringValue(payload map[string]any, keys ...string) *string {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(str)
		if trimmed != "" {
			return &trimmed
		}
	}
	return nil
}
