package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/types"
)

// CustomerDTO is the transport shape for a customer profile.
type CustomerDTO struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Type            enums.CustomerType `json:"type"`
	BusinessName    *string            `json:"business_name,omitempty"`
	TaxID           *string            `json:"tax_id,omitempty"`
	Verified        bool               `json:"verified"`
	VerifiedAt      *time.Time         `json:"verified_at,omitempty"`
	ShippingAddress *types.Address     `json:"shipping_address,omitempty"`
	Email           string             `json:"email,omitempty"`
	Name            string             `json:"name,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// NewCustomerDTO maps a customer row, folding in user identity when preloaded.
func NewCustomerDTO(customer *models.Customer) *CustomerDTO {
	if customer == nil {
		return nil
	}
	dto := &CustomerDTO{
		ID:              customer.ID,
		UserID:          customer.UserID,
		Type:            customer.Type,
		BusinessName:    customer.BusinessName,
		TaxID:           customer.TaxID,
		Verified:        customer.IsVerified(),
		VerifiedAt:      customer.VerifiedAt,
		ShippingAddress: customer.ShippingAddress,
		CreatedAt:       customer.CreatedAt,
	}
	if customer.User != nil {
		dto.Email = customer.User.Email
		dto.Name = customer.User.FirstName + " " + customer.User.LastName
	}
	return dto
}

// PendingListResult carries one page of the verification queue.
type PendingListResult struct {
	Customers  []CustomerDTO `json:"customers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
