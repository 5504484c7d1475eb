package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

// Repository provides persistence for batches and the movement ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindMovementByIdempotencyKey loads a prior ledger entry for replay detection.
func (r *Repository) FindMovementByIdempotencyKey(ctx context.Context, key string) (*models.InventoryMovement, error) {
	var movement models.InventoryMovement
	if err := r.db.WithContext(ctx).First(&movement, "idempotency_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// FindBatch loads a batch by its natural key.
func (r *Repository) FindBatch(ctx context.Context, productID uuid.UUID, batchNumber string) (*models.InventoryBatch, error) {
	var batch models.InventoryBatch
	err := r.db.WithContext(ctx).
		First(&batch, "product_id = ? AND batch_number = ?", productID, batchNumber).
		Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindBatchByID loads a batch by primary key.
func (r *Repository) FindBatchByID(ctx context.Context, id uuid.UUID) (*models.InventoryBatch, error) {
	var batch models.InventoryBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// CreateBatch inserts a new batch row.
func (r *Repository) CreateBatch(ctx context.Context, batch *models.InventoryBatch) (*models.InventoryBatch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// CreateMovement appends a ledger entry. The idempotency key's unique index
// rejects concurrent duplicates.
func (r *Repository) CreateMovement(ctx context.Context, movement *models.InventoryMovement) (*models.InventoryMovement, error) {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyBatchDelta shifts a batch quantity, refusing to underflow. A false
// return means the guard blocked the update.
func (r *Repository) ApplyBatchDelta(ctx context.Context, batchID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_batches
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity + ? >= 0
	`, delta, batchID, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyProductStockDelta shifts the product aggregate, refusing to underflow.
func (r *Repository) ApplyProductStockDelta(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity + ? >= 0
	`, delta, productID, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetProductStock reads the current product aggregate.
func (r *Repository) GetProductStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("stock_quantity").
		First(&product, "id = ?", productID).
		Error
	if err != nil {
		return 0, err
	}
	return product.StockQuantity, nil
}

// ProductExists reports whether the product row is present.
func (r *Repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).
		Error
	return count > 0, err
}

// ListBatches returns all batches for a product, oldest first.
func (r *Repository) ListBatches(ctx context.Context, productID uuid.UUID) ([]models.InventoryBatch, error) {
	var rows []models.InventoryBatch
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListMovements pages through a product's ledger newest-first.
func (r *Repository) ListMovements(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]models.InventoryMovement, string, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Where("product_id = ?", productID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.InventoryMovement
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// ListLowStockProducts returns products under their configured threshold.
func (r *Repository) ListLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("min_stock_level IS NOT NULL AND stock_quantity < min_stock_level").
		Order("stock_quantity ASC").
		Find(&rows).
		Error
	return rows, err
}
