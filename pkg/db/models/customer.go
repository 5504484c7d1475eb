package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/types"
)

// Customer captures the purchasing profile attached to a user account.
// Wholesale customers stay unverified until staff approves their business
// documentation; until then they are priced as retail.
type Customer struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Type            enums.CustomerType `gorm:"column:type;type:customer_type;not null;default:'RETAIL'"`
	BusinessName    *string            `gorm:"column:business_name"`
	TaxID           *string            `gorm:"column:tax_id"`
	VerifiedAt      *time.Time         `gorm:"column:verified_at"`
	VerifiedBy      *uuid.UUID         `gorm:"column:verified_by;type:uuid"`
	ShippingAddress *types.Address     `gorm:"column:shipping_address;type:address_t"`
	User            *User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsVerified reports whether staff has approved the customer for wholesale pricing.
func (c Customer) IsVerified() bool {
	return c.VerifiedAt != nil
}

// PricingType returns the customer type that pricing should honor. Wholesale
// accounts without staff verification are priced as retail.
func (c Customer) PricingType() enums.CustomerType {
	if c.Type == enums.CustomerTypeWholesale && !c.IsVerified() {
		return enums.CustomerTypeRetail
	}
	return c.Type
}
