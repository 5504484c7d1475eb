package prescriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
)

// UploadTicketDTO hands the client a pre-signed PUT target. The object path
// comes back on Submit so the row points at what was actually uploaded.
type UploadTicketDTO struct {
	UploadURL   string    `json:"upload_url"`
	ObjectPath  string    `json:"object_path"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	MaxSizeMB   int       `json:"max_size_mb"`
}

// PrescriptionDTO is the API shape of a prescription document.
type PrescriptionDTO struct {
	ID              uuid.UUID                `json:"id"`
	CustomerID      uuid.UUID                `json:"customer_id"`
	OrderID         *uuid.UUID               `json:"order_id,omitempty"`
	Status          enums.PrescriptionStatus `json:"status"`
	ContentType     string                   `json:"content_type"`
	ProductIDs      []uuid.UUID              `json:"product_ids"`
	ReviewedBy      *uuid.UUID               `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time               `json:"reviewed_at,omitempty"`
	RejectionReason *string                  `json:"rejection_reason,omitempty"`
	DocumentURL     string                   `json:"document_url,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// PrescriptionList is a cursor page of prescriptions.
type PrescriptionList struct {
	Items      []PrescriptionDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// NewPrescriptionDTO maps a model to its API shape. The signed document URL
// is attached separately by the service.
func NewPrescriptionDTO(rx *models.Prescription) *PrescriptionDTO {
	productIDs := make([]uuid.UUID, len(rx.ProductIDs))
	copy(productIDs, rx.ProductIDs)

	return &PrescriptionDTO{
		ID:              rx.ID,
		CustomerID:      rx.CustomerID,
		OrderID:         rx.OrderID,
		Status:          rx.Status,
		ContentType:     rx.ContentType,
		ProductIDs:      productIDs,
		ReviewedBy:      rx.ReviewedBy,
		ReviewedAt:      rx.ReviewedAt,
		RejectionReason: rx.RejectionReason,
		CreatedAt:       rx.CreatedAt,
	}
}
