package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockReader interface {
	ListLowStockProducts(ctx context.Context) ([]models.Product, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LowStockJobParams configure the low stock sweep.
type LowStockJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Inventory lowStockReader
	Outbox    outboxEmitter
}

// NewLowStockJob builds the cron job that flags products under their
// configured threshold. EmitIfNotExists keeps one open alert per product;
// a restock clears the queue entry and re-arms the alert.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &lowStockJob{
		logg:      params.Logger,
		db:        params.DB,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		now:       time.Now,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	db        txRunner
	inventory lowStockReader
	outbox    outboxEmitter
	now       func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock" }

func (j *lowStockJob) Run(ctx context.Context) error {
	products, err := j.inventory.ListLowStockProducts(ctx)
	if err != nil {
		return fmt.Errorf("query low stock products: %w", err)
	}

	var errs []error
	flagged := 0
	for _, product := range products {
		if product.MinStockLevel == nil {
			continue
		}
		if err := j.emitAlert(ctx, product); err != nil {
			errs = append(errs, fmt.Errorf("flag product %s: %w", product.SKU, err))
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"below_threshold": len(products),
		"flagged":         flagged,
	})
	j.logg.Info(logCtx, "low stock sweep complete")
	return multierr.Combine(errs...)
}

func (j *lowStockJob) emitAlert(ctx context.Context, product models.Product) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: payloads.StockLowEvent{
				ProductID: product.ID,
				SKU:       product.SKU,
				Name:      product.Name,
				StockQty:  product.StockQuantity,
				Threshold: *product.MinStockLevel,
			},
		})
	})
}
