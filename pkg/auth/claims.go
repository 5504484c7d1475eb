package auth

import (
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Role         enums.Role
	CustomerID   *uuid.UUID
	CustomerType *enums.CustomerType
	Verified     bool
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID       uuid.UUID           `json:"user_id"`
	Role         enums.Role          `json:"role"`
	CustomerID   *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerType *enums.CustomerType `json:"customer_type,omitempty"`
	Verified     bool                `json:"verified,omitempty"`
	jwt.RegisteredClaims
}
