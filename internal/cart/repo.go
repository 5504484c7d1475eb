package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/boticalabs/botica-backend/pkg/db/models"
)

// Repository persists cart rows. One row per customer/product pair, enforced
// by idx_cart_customer_product.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Upsert writes the quantity for a customer/product pair, replacing any
// previous selection.
func (r *Repository) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": item.Quantity, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")}),
		}).
		Create(item).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, item.CustomerID, item.ProductID)
}

// Find loads a single cart row.
func (r *Repository) Find(ctx context.Context, customerID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "customer_id = ? AND product_id = ?", customerID, productID).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListWithProducts returns the customer's cart with catalog rows and bulk
// rules preloaded, oldest selection first.
func (r *Repository) ListWithProducts(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.BulkPriceRules").
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).
		Error
	return items, err
}

// Remove deletes one product from the cart.
func (r *Repository) Remove(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear removes every cart row for the customer.
func (r *Repository) Clear(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartItem{}).Error
}
