package validator

import (
	"testing"
)

type locationPayload struct {
	UserID    string   `json:"user_id" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Accuracy  float64  `json:"accuracy" validate:"gte=0"`
}

func TestValidateStructSuccess(t *testing.T) {
	lat, lon := 28.6139, 77.2090
	payload := locationPayload{
		UserID:    "user-1",
		Latitude:  &lat,
		Longitude: &lon,
		Accuracy:  12,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := locationPayload{
		UserID:   "",
		Accuracy: -1,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(vErrs) != 4 {
		t.Fatalf("expected 4 failures, got %d: %v", len(vErrs), vErrs)
	}
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	err := ValidateStruct(locationPayload{})
	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	found := false
	for _, fe := range vErrs {
		if fe.Field == "user_id" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected failure reported under json field name user_id")
	}
}
