package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/boticalabs/botica-backend/pkg/db/types"
	"github.com/boticalabs/botica-backend/pkg/enums"
)

// Prescription records an uploaded prescription document pending pharmacist
// review. ProductIDs lists the catalog products the document covers, recorded
// by the reviewer.
type Prescription struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID                `gorm:"column:customer_id;type:uuid;not null"`
	OrderID         *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	ObjectPath      string                   `gorm:"column:object_path;not null"`
	ContentType     string                   `gorm:"column:content_type;not null"`
	Status          enums.PrescriptionStatus `gorm:"column:status;type:prescription_status;not null;default:'submitted'"`
	ProductIDs      dbtypes.UUIDArray        `gorm:"column:product_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	ReviewedBy      *uuid.UUID               `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt      *time.Time               `gorm:"column:reviewed_at"`
	RejectionReason *string                  `gorm:"column:rejection_reason"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
