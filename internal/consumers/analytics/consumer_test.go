package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
)

type fakeInserter struct {
	tables []string
	rows   []any
	err    error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	f.tables = append(f.tables, table)
	f.rows = append(f.rows, rows...)
	return f.err
}

type fakeIdempotency struct {
	checked  []uuid.UUID
	deleted  []uuid.UUID
	already  bool
	checkErr error
}

func (f *fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	f.checked = append(f.checked, eventID)
	return f.already, f.checkErr
}

func (f *fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

var testTables = config.BigQueryConfig{
	Dataset:              "botica",
	OrderEventsTable:     "order_events",
	InventoryEventsTable: "inventory_events",
}

func mustConsumer(t *testing.T, inserter *fakeInserter, manager *fakeIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(inserter, testTables, manager,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, payload map[string]any) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestProcessRoutesOrderEvents(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := mustConsumer(t, inserter, &fakeIdempotency{})

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"order_id":    uuid.NewString(),
		"customer_id": uuid.NewString(),
	})
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(inserter.tables) != 1 || inserter.tables[0] != "order_events" {
		t.Fatalf("expected one insert into order_events, got %v", inserter.tables)
	}

	row, ok := inserter.rows[0].(*domainEventRow)
	if !ok {
		t.Fatalf("unexpected row type %T", inserter.rows[0])
	}
	if row.OrderID == nil || row.CustomerID == nil {
		t.Fatalf("expected order and customer ids extracted, got %+v", row)
	}
}

func TestProcessRoutesInventoryEvents(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := mustConsumer(t, inserter, &fakeIdempotency{})

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"productId": uuid.NewString(),
		"stockQty":  4,
	})
	if err := consumer.Process(context.Background(), enums.EventStockLow, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(inserter.tables) != 1 || inserter.tables[0] != "inventory_events" {
		t.Fatalf("expected one insert into inventory_events, got %v", inserter.tables)
	}
	row := inserter.rows[0].(*domainEventRow)
	if row.ProductID == nil {
		t.Fatalf("expected product id extracted from camelCase payload")
	}
}

func TestProcessSkipsUnhandledEvents(t *testing.T) {
	inserter := &fakeInserter{}
	manager := &fakeIdempotency{}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventCustomerVerified, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(inserter.tables) != 0 {
		t.Fatalf("expected no inserts for unhandled events")
	}
	if len(manager.checked) != 0 {
		t.Fatalf("unhandled events must not touch idempotency state")
	}
}

func TestProcessSkipsAlreadyProcessed(t *testing.T) {
	inserter := &fakeInserter{}
	manager := &fakeIdempotency{already: true}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{"order_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventOrderCreated, envelope); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(inserter.tables) != 0 {
		t.Fatalf("expected no inserts for replayed events")
	}
}

func TestProcessReleasesIdempotencyOnInsertFailure(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("stream unavailable")}
	manager := &fakeIdempotency{}
	consumer := mustConsumer(t, inserter, manager)

	eventID := uuid.New()
	envelope := buildEnvelope(t, eventID, map[string]any{"order_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventOrderCreated, envelope); err == nil {
		t.Fatalf("expected insert failure to propagate")
	}
	if len(manager.deleted) != 1 || manager.deleted[0] != eventID {
		t.Fatalf("failed inserts must release the idempotency mark, got %v", manager.deleted)
	}
}
