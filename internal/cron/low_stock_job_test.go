package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
)

type fakeLowStockReader struct {
	products []models.Product
	err      error
}

func (f *fakeLowStockReader) ListLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return f.products, f.err
}

type fakeOutboxEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutboxEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type lowStockFakeTxRunner struct{}

func (lowStockFakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func lowStockProduct(stock, threshold int) models.Product {
	return models.Product{
		ID:            uuid.New(),
		SKU:           "AMOX-500",
		Name:          "Amoxicilina 500mg",
		StockQuantity: stock,
		MinStockLevel: &threshold,
	}
}

func newLowStockJob(t *testing.T, reader *fakeLowStockReader, emitter *fakeOutboxEmitter) *lowStockJob {
	t.Helper()
	jobIface, err := NewLowStockJob(LowStockJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DB:        lowStockFakeTxRunner{},
		Inventory: reader,
		Outbox:    emitter,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	job, ok := jobIface.(*lowStockJob)
	if !ok {
		t.Fatalf("expected lowStockJob, got %T", jobIface)
	}
	return job
}

func TestLowStockJobEmitsAlerts(t *testing.T) {
	product := lowStockProduct(4, 10)
	reader := &fakeLowStockReader{products: []models.Product{product}}
	emitter := &fakeOutboxEmitter{}
	job := newLowStockJob(t, reader, emitter)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}

	event := emitter.events[0]
	if event.EventType != enums.EventStockLow || event.AggregateID != product.ID {
		t.Fatalf("unexpected event %+v", event)
	}
	payload, ok := event.Data.(payloads.StockLowEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.StockQty != 4 || payload.Threshold != 10 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestLowStockJobContinuesPastFailures(t *testing.T) {
	reader := &fakeLowStockReader{products: []models.Product{
		lowStockProduct(1, 5),
		lowStockProduct(2, 5),
	}}
	emitter := &fakeOutboxEmitter{err: errors.New("boom")}
	job := newLowStockJob(t, reader, emitter)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected combined error")
	}
	if len(emitter.events) != 2 {
		t.Fatalf("every product must be attempted, got %d", len(emitter.events))
	}
}

func TestLowStockJobPropagatesQueryError(t *testing.T) {
	reader := &fakeLowStockReader{err: errors.New("db down")}
	job := newLowStockJob(t, reader, &fakeOutboxEmitter{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
