package prescriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

// Repository provides persistence for prescription documents.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a prescriptions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a prescription row.
func (r *Repository) Create(ctx context.Context, rx *models.Prescription) (*models.Prescription, error) {
	if err := r.db.WithContext(ctx).Create(rx).Error; err != nil {
		return nil, err
	}
	return rx, nil
}

// FindByID loads a prescription by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var rx models.Prescription
	if err := r.db.WithContext(ctx).First(&rx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rx, nil
}

// AttachOrderTx binds an approved prescription to an order inside the order
// creation transaction. The guard keeps a prescription single-use.
func (r *Repository) AttachOrderTx(ctx context.Context, tx *gorm.DB, prescriptionID, orderID uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND order_id IS NULL AND status = ?", prescriptionID, enums.PrescriptionStatusApproved).
		UpdateColumn("order_id", orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Review stamps the pharmacist's decision on a submitted prescription.
// A false return means the row was already reviewed or missing.
func (r *Repository) Review(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, enums.PrescriptionStatusSubmitted).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByCustomer pages through a customer's prescriptions newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Params) ([]models.Prescription, string, error) {
	qb := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	return r.page(ctx, qb, page, false)
}

// ListPendingReview pages through submitted prescriptions oldest first so the
// pharmacist queue surfaces the longest-waiting documents.
func (r *Repository) ListPendingReview(ctx context.Context, page pagination.Params) ([]models.Prescription, string, error) {
	qb := r.db.WithContext(ctx).Where("status = ?", enums.PrescriptionStatusSubmitted)
	return r.page(ctx, qb, page, true)
}

func (r *Repository) page(ctx context.Context, qb *gorm.DB, page pagination.Params, ascending bool) ([]models.Prescription, string, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		if ascending {
			qb = qb.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		} else {
			qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
	}

	order := "created_at DESC"
	tiebreak := "id DESC"
	if ascending {
		order = "created_at ASC"
		tiebreak = "id ASC"
	}

	var rows []models.Prescription
	if err := qb.Order(order).Order(tiebreak).Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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
