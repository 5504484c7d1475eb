package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

// Repository defines the persistence surface the order service relies on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateTrackingEvent(ctx context.Context, event *models.OrderTrackingEvent) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error

	DecrementProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	RestoreProductStock(ctx context.Context, productID uuid.UUID, qty int) error

	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page pagination.Params, filters ListFilters) (*OrderList, error)
	ListOrders(ctx context.Context, page pagination.Params, filters AdminListFilters) (*OrderList, error)
	FindPendingOrderIDsBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}
