package product

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/pagination"
	"github.com/lib/pq"
)

// Repository wires together product and bulk-pricing persistence.
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

// FindByID loads the product without associations. Mutation paths depend on
// that: Save must never touch bulk price rules.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with its bulk price rules preloaded.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("BulkPriceRules", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_qty DESC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads multiple products with their bulk price rules. Missing IDs
// are simply absent from the result; callers detect them by count.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("BulkPriceRules", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_qty DESC")
		}).
		Where("id IN ?", ids).
		Find(&rows).
		Error
	return rows, err
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ReplaceBulkPriceRules replaces all bulk price rules for the product.
func (r *Repository) ReplaceBulkPriceRules(ctx context.Context, productID uuid.UUID, rules []models.ProductBulkPriceRule) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductBulkPriceRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return tx.Create(&rules).Error
}

// ListBulkPriceRules returns all rules for a product ordered by min_qty ascending.
func (r *Repository) ListBulkPriceRules(ctx context.Context, productID uuid.UUID) ([]models.ProductBulkPriceRule, error) {
	var rows []models.ProductBulkPriceRule
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("min_qty ASC").
		Find(&rows).
		Error
	return rows, err
}

// DecrementStock atomically subtracts qty from the product aggregate. The
// guard keeps the quantity from going negative; the first committer wins and
// a false return means the remaining stock could not cover the request.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ListProductSummaries pages through active storefront products newest-first.
func (r *Repository) ListProductSummaries(ctx context.Context, query productListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	bulkExistsClause := "EXISTS (SELECT 1 FROM product_bulk_price_rules b WHERE b.product_id = p.id)"

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.sku",
			"p.name",
			"p.laboratory",
			"p.active_ingredient",
			"p.tags",
			"p.retail_price_cents",
			"p.wholesale_price_cents",
			"p.requires_prescription",
			"p.stock_quantity",
			"p.created_at",
			"p.updated_at",
			bulkExistsClause + " AS has_bulk_pricing",
		}, ", ")).
		Where("p.is_active = ?", true)

	filter := query.Filters
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(p.sku) LIKE ?)", pattern, pattern)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		qb = qb.Where("? = ANY(p.tags)", tag)
	}
	if filter.RequiresPrescription != nil {
		qb = qb.Where("p.requires_prescription = ?", *filter.RequiresPrescription)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID                   uuid.UUID
	SKU                  string
	Name                 string
	Laboratory           sql.NullString
	ActiveIngredient     sql.NullString
	Tags                 pq.StringArray `gorm:"type:text[]"`
	RetailPriceCents     int
	WholesalePriceCents  int
	RequiresPrescription bool
	StockQuantity        int
	HasBulkPricing       bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:                   r.ID,
		SKU:                  r.SKU,
		Name:                 r.Name,
		Laboratory:           nullStringPtr(r.Laboratory),
		ActiveIngredient:     nullStringPtr(r.ActiveIngredient),
		Tags:                 append([]string{}, r.Tags...),
		RetailPriceCents:     r.RetailPriceCents,
		WholesalePriceCents:  r.WholesalePriceCents,
		RequiresPrescription: r.RequiresPrescription,
		StockQuantity:        r.StockQuantity,
		HasBulkPricing:       r.HasBulkPricing,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
