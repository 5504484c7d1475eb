package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

// RxValidationInput describes the data required to verify a line item's
// prescription coverage.
type RxValidationInput struct {
	ProductID            uuid.UUID
	ProductName          string
	RequiresPrescription bool
	Covered              bool
}

// RxViolationDetail exposes the data returned to callers when a validation fails.
type RxViolationDetail struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
}

// ValidatePrescriptionCoverage ensures every prescription-only line item is
// covered by an approved prescription.
func ValidatePrescriptionCoverage(items []RxValidationInput) error {
	var violations []RxViolationDetail
	for _, item := range items {
		if !item.RequiresPrescription {
			continue
		}
		if !item.Covered {
			violations = append(violations, RxViolationDetail{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("approved prescription required for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
