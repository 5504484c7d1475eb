package checkout

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

func TestValidatePrescriptionCoverage_NoViolations(t *testing.T) {
	items := []RxValidationInput{
		{
			ProductID:            uuid.New(),
			ProductName:          "Paracetamol 500mg",
			RequiresPrescription: false,
		},
		{
			ProductID:            uuid.New(),
			ProductName:          "Amoxicillin 250mg",
			RequiresPrescription: true,
			Covered:              true,
		},
	}
	if err := ValidatePrescriptionCoverage(items); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidatePrescriptionCoverage_Violations(t *testing.T) {
	violationItems := []RxValidationInput{
		{
			ProductID:            uuid.New(),
			ProductName:          "Amoxicillin 250mg",
			RequiresPrescription: true,
		},
		{
			ProductID:            uuid.New(),
			ProductName:          "Tramadol 50mg",
			RequiresPrescription: true,
		},
	}
	err := ValidatePrescriptionCoverage(violationItems)
	if err == nil {
		t.Fatal("expected error for uncovered prescription items")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected pkgerrors.Error, got %T", err)
	}
	if typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected code %s, got %s", pkgerrors.CodeStateConflict, typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	rawViolations, ok := details["violations"].([]RxViolationDetail)
	if !ok {
		t.Fatalf("expected violations slice, got %T", details["violations"])
	}
	if len(rawViolations) != len(violationItems) {
		t.Fatalf("expected %d violations, got %d", len(violationItems), len(rawViolations))
	}
	for i, violation := range rawViolations {
		input := violationItems[i]
		if violation.ProductID != input.ProductID {
			t.Fatalf("expected product id %s, got %s", input.ProductID, violation.ProductID)
		}
		if violation.ProductName != input.ProductName {
			t.Fatalf("expected product name %q, got %q", input.ProductName, violation.ProductName)
		}
	}
}

func TestValidatePrescriptionCoverage_MixedCoverage(t *testing.T) {
	covered := uuid.New()
	uncovered := uuid.New()
	err := ValidatePrescriptionCoverage([]RxValidationInput{
		{ProductID: covered, RequiresPrescription: true, Covered: true},
		{ProductID: uncovered, RequiresPrescription: true},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	details := typed.Details().(map[string]any)
	violations := details["violations"].([]RxViolationDetail)
	if len(violations) != 1 || violations[0].ProductID != uncovered {
		t.Fatalf("expected single violation for uncovered item, got %+v", violations)
	}
}
