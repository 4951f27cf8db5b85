package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestProcessValidationErrorsFieldMap(t *testing.T) {
	type payload struct {
		Phone string `validate:"required,e164"`
		Code  string `validate:"required,len=6"`
	}

	validate := validator.New()
	err := validate.Struct(payload{Phone: "not-a-phone", Code: "12"})
	if err == nil {
		t.Fatalf("expected validation failure")
	}

	got := ProcessValidationErrors(err)
	if got["phone"] != "e164" {
		t.Fatalf("phone rule: got %q, want %q", got["phone"], "e164")
	}
	if got["code"] != "len" {
		t.Fatalf("code rule: got %q, want %q", got["code"], "len")
	}
}

func TestProcessValidationErrorsNonValidationError(t *testing.T) {
	got := ProcessValidationErrors(errors.New("unexpected EOF"))
	if len(got) != 1 || got["request"] != "invalid" {
		t.Fatalf("unexpected map: %v", got)
	}
}
