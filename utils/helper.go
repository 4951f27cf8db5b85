package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ProcessValidationErrors flattens a binding failure into a field -> rule map
// suitable for API error payloads. Non-validation errors (malformed JSON and
// the like) collapse into a single "request" entry.
func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["request"] = "invalid"
		return errorResponse
	}

	for _, ve := range validationErrors {
		errorResponse[strings.ToLower(ve.Field())] = ve.Tag()
	}

	return errorResponse
}
