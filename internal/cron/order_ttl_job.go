package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/boticalabs/botica-backend/pkg/logger"
)

const (
	defaultOrderPendingTTL = 72 * time.Hour
	orderExpiryBatchSize   = 100
)

// staleOrderExpirer is the slice of the orders service the TTL job drives.
type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time, batchSize, ttlHours int) (int, error)
}

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Orders    staleOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewOrderTTLJob builds the cron job that expires unpaid orders past their
// TTL, restoring the reserved stock.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultOrderPendingTTL
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = orderExpiryBatchSize
	}
	return &orderTTLJob{
		logg:      params.Logger,
		orders:    params.Orders,
		ttl:       ttl,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type orderTTLJob struct {
	logg      *logger.Logger
	orders    staleOrderExpirer
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ttlHours := int(j.ttl / time.Hour)

	expired, err := j.orders.ExpireStale(ctx, cutoff, j.batchSize, ttlHours)
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
	})
	j.logg.Info(logCtx, "order expiration loop complete")
	return nil
}
