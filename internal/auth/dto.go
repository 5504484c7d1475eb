package auth

import (
	"github.com/boticalabs/botica-backend/internal/customers"
	"github.com/boticalabs/botica-backend/internal/users"
)

// RegisterRequest captures the payload for account creation. Wholesale
// applicants must provide their business identity for later verification.
type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name" validate:"required"`
	Phone        *string `json:"phone,omitempty"`
	CustomerType string  `json:"customer_type" validate:"required,oneof=RETAIL WHOLESALE"`
	BusinessName *string `json:"business_name,omitempty"`
	TaxID        *string `json:"tax_id,omitempty"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the expired access token plus its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionResponse is returned by register, login, and refresh.
type SessionResponse struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	User         *users.UserDTO         `json:"user"`
	Customer     *customers.CustomerDTO `json:"customer,omitempty"`
}
