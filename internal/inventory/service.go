package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/outbox/payloads"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service applies ledger movements against batches and the product aggregate.
type Service interface {
	ApplyAdjustment(ctx context.Context, params ApplyAdjustmentParams) (*AdjustmentResult, error)
	ListBatches(ctx context.Context, productID uuid.UUID) ([]BatchDTO, error)
	ListMovements(ctx context.Context, productID uuid.UUID, page pagination.Params) (*MovementListResult, error)
	ListLowStock(ctx context.Context) ([]LowStockProductDTO, error)
}

// ApplyAdjustmentParams describes a single requested stock movement.
// ActorID is nil for system-driven movements such as order expiry restocks.
// ExpiresAt is only honored when the movement creates the batch.
type ApplyAdjustmentParams struct {
	ProductID      uuid.UUID
	Type           enums.MovementType
	Qty            int
	BatchNumber    string
	IdempotencyKey string
	Reason         *string
	ActorID        *uuid.UUID
	OrderID        *uuid.UUID
	ExpiresAt      *time.Time
}

type service struct {
	repo     *Repository
	dbClient txRunner
	outbox   outboxPublisher
}

// NewService wires the inventory service with its dependencies.
func NewService(repo *Repository, dbClient txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory: repository is required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("inventory: db client is required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("inventory: outbox publisher is required")
	}
	return &service{repo: repo, dbClient: dbClient, outbox: outboxSvc}, nil
}

// ApplyAdjustment records one movement at most per idempotency key. Replays
// return the original result without touching stock again; concurrent
// duplicates lose the insert race and read back the winner's movement.
func (s *service) ApplyAdjustment(ctx context.Context, params ApplyAdjustmentParams) (*AdjustmentResult, error) {
	params.BatchNumber = strings.TrimSpace(params.BatchNumber)
	params.IdempotencyKey = strings.TrimSpace(params.IdempotencyKey)
	if err := validateAdjustment(params); err != nil {
		return nil, err
	}

	replay, err := s.replayResult(ctx, params)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	exists, err := s.repo.ProductExists(ctx, params.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	for attempt := 0; ; attempt++ {
		result, err := s.applyOnce(ctx, params)
		if err == nil {
			return result, nil
		}
		if dbpkg.IsUniqueViolation(err, "idx_movements_idempotency_key") {
			// A concurrent request holding the same key committed first.
			replay, replayErr := s.replayResult(ctx, params)
			if replayErr != nil {
				return nil, replayErr
			}
			if replay == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "movement missing after idempotency conflict")
			}
			return replay, nil
		}
		if dbpkg.IsUniqueViolation(err, "idx_batch_product_number") && attempt == 0 {
			// The batch appeared between our read and insert; reload and retry.
			continue
		}
		return nil, err
	}
}

func (s *service) applyOnce(ctx context.Context, params ApplyAdjustmentParams) (*AdjustmentResult, error) {
	var result *AdjustmentResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		batch, err := txRepo.FindBatch(ctx, params.ProductID, params.BatchNumber)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load batch")
			}
			batch, err = txRepo.CreateBatch(ctx, &models.InventoryBatch{
				ID:          uuid.New(),
				ProductID:   params.ProductID,
				BatchNumber: params.BatchNumber,
				ExpiresAt:   params.ExpiresAt,
			})
			if err != nil {
				return err
			}
		}

		delta := movementDelta(params.Type, params.Qty, batch.Quantity)
		resulting := batch.Quantity + delta
		if resulting < 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "movement would drive batch stock negative").
				WithDetails(map[string]any{
					"batchNumber": params.BatchNumber,
					"available":   batch.Quantity,
					"requested":   params.Qty,
				})
		}

		movement := &models.InventoryMovement{
			ID:             uuid.New(),
			ProductID:      params.ProductID,
			BatchID:        batch.ID,
			Type:           params.Type,
			Quantity:       params.Qty,
			QuantityDelta:  delta,
			ResultingQty:   resulting,
			IdempotencyKey: params.IdempotencyKey,
			Reason:         params.Reason,
			ActorUserID:    params.ActorID,
			OrderID:        params.OrderID,
		}
		if _, err := txRepo.CreateMovement(ctx, movement); err != nil {
			return err
		}

		ok, err := txRepo.ApplyBatchDelta(ctx, batch.ID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update batch quantity")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "concurrent movement depleted the batch").
				WithDetails(map[string]any{"batchNumber": params.BatchNumber})
		}

		ok, err = txRepo.ApplyProductStockDelta(ctx, params.ProductID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "product stock would go negative").
				WithDetails(map[string]any{"productId": params.ProductID})
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   params.ProductID,
			Actor:         actorRef(params.ActorID),
			Data: payloads.InventoryAdjustedEvent{
				ProductID:    params.ProductID,
				BatchID:      batch.ID,
				BatchNumber:  batch.BatchNumber,
				MovementID:   movement.ID,
				MovementType: movement.Type,
				Quantity:     movement.Quantity,
				ResultingQty: movement.ResultingQty,
			},
			Version:    1,
			OccurredAt: time.Now(),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit inventory_adjusted")
		}

		result = newAdjustmentResult(movement, batch.BatchNumber)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replayResult returns the prior outcome for an already-used idempotency key,
// or nil when the key is fresh. Reusing a key with different parameters is an
// error rather than a silent replay.
func (s *service) replayResult(ctx context.Context, params ApplyAdjustmentParams) (*AdjustmentResult, error) {
	movement, err := s.repo.FindMovementByIdempotencyKey(ctx, params.IdempotencyKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load movement by idempotency key")
	}

	if movement.ProductID != params.ProductID || movement.Type != params.Type || movement.Quantity != params.Qty {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key was already used with different parameters")
	}

	batch, err := s.repo.FindBatchByID(ctx, movement.BatchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load batch for replay")
	}
	if batch.BatchNumber != params.BatchNumber {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key was already used with different parameters")
	}

	return newAdjustmentResult(movement, batch.BatchNumber), nil
}

// ListBatches returns every batch recorded for the product, oldest first.
func (s *service) ListBatches(ctx context.Context, productID uuid.UUID) ([]BatchDTO, error) {
	if err := s.ensureProductExists(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBatches(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list batches")
	}
	batches := make([]BatchDTO, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, NewBatchDTO(row))
	}
	return batches, nil
}

// ListMovements pages through the product's ledger newest-first.
func (s *service) ListMovements(ctx context.Context, productID uuid.UUID, page pagination.Params) (*MovementListResult, error) {
	if err := s.ensureProductExists(ctx, productID); err != nil {
		return nil, err
	}
	rows, nextCursor, err := s.repo.ListMovements(ctx, productID, page)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list movements")
	}
	movements := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, NewMovementDTO(row))
	}
	return &MovementListResult{Movements: movements, NextCursor: nextCursor}, nil
}

// ListLowStock reports products sitting under their configured threshold.
func (s *service) ListLowStock(ctx context.Context) ([]LowStockProductDTO, error) {
	rows, err := s.repo.ListLowStockProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock products")
	}
	products := make([]LowStockProductDTO, 0, len(rows))
	for _, row := range rows {
		products = append(products, NewLowStockProductDTO(row))
	}
	return products, nil
}

func (s *service) ensureProductExists(ctx context.Context, productID uuid.UUID) error {
	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func validateAdjustment(params ApplyAdjustmentParams) error {
	if params.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !params.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement type must be IN, OUT or ADJUST")
	}
	if params.BatchNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch number is required")
	}
	if params.IdempotencyKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	switch params.Type {
	case enums.MovementTypeAdjust:
		if params.Qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
		}
	default:
		if params.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

// movementDelta converts a movement into its signed effect on the batch.
// ADJUST carries an absolute target quantity rather than a delta.
func movementDelta(movementType enums.MovementType, qty, current int) int {
	switch movementType {
	case enums.MovementTypeIn:
		return qty
	case enums.MovementTypeOut:
		return -qty
	default:
		return qty - current
	}
}

func actorRef(actorID *uuid.UUID) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actorID}
}
